package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultPollInterval is the interval Await uses when given a non-positive one.
const DefaultPollInterval = 500 * time.Millisecond

var errNotFinished = errors.New("task not finished")

// StatusSource is anything that can report a task record by id.
type StatusSource interface {
	GetStatus(id string) (Record, bool)
}

// Await polls src until the task reaches a terminal status and returns the
// final record. It returns ErrTaskNotFound if the task is unknown, or the
// last observed record together with ctx.Err() when ctx ends first.
func Await(ctx context.Context, src StatusSource, id string, interval time.Duration) (Record, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var last Record
	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		rec, ok := src.GetStatus(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		last = rec
		if !rec.Status.IsTerminal() {
			return retry.RetryableError(errNotFinished)
		}
		return nil
	})
	if err != nil {
		return last, err
	}
	return last, nil
}
