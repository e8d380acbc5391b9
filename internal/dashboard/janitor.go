package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper performs one cleanup pass. *Aggregator satisfies it.
type Sweeper interface {
	Cleanup(retention time.Duration) (CleanupResult, error)
}

// Janitor periodically removes expired cache entries and old task records.
type Janitor struct {
	sweeper   Sweeper
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewJanitor creates a Janitor that sweeps every interval, removing finished
// tasks older than retention.
func NewJanitor(sweeper Sweeper, interval, retention time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sweeper:   sweeper,
		interval:  interval,
		retention: retention,
		logger:    logger.With("component", "janitor"),
	}
}

// Run sweeps on every tick until ctx is cancelled. It always returns nil so
// it can run inside an errgroup without stopping its siblings.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started",
		"interval", j.interval,
		"retention", j.retention)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return nil
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one cleanup pass and logs the outcome.
func (j *Janitor) Sweep() CleanupResult {
	res, err := j.sweeper.Cleanup(j.retention)
	if err != nil {
		j.logger.Error("cleanup pass had errors",
			"error", err,
			"cache_cleaned", res.CacheCleaned,
			"tasks_cleaned", res.TasksCleaned)
		return res
	}

	if res.CacheCleaned > 0 || res.TasksCleaned > 0 {
		j.logger.Info("cleanup pass removed entries",
			"cache_cleaned", res.CacheCleaned,
			"tasks_cleaned", res.TasksCleaned)
	} else {
		j.logger.Debug("cleanup pass found nothing to remove")
	}
	return res
}
