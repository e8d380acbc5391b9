package skills

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/jd-tailor/internal/cache"
	"github.com/phrazzld/jd-tailor/internal/task"
	"golang.org/x/sync/singleflight"
)

// Operation names reported to the Observer.
const (
	OpLLMCall    = "llm_call"
	OpExtraction = "skills_extraction"
)

// Completer sends a prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Observer receives timings for expensive operations.
type Observer interface {
	Record(operation string, duration time.Duration, err error)
}

// Submitter queues background work. *task.Runner satisfies it.
type Submitter interface {
	Submit(ctx context.Context, taskType string, fn task.WorkFunc, metadata map[string]any) (string, error)
}

// Config controls extraction.
type Config struct {
	// SkillCap is the maximum length of SkillsFlat.
	SkillCap int
	// Compress stores cache entries gzip-compressed.
	Compress bool
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithObserver reports LLM call and extraction timings to o.
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		e.observer = o
	}
}

// Extractor runs the skills extraction pipeline.
type Extractor struct {
	llm      Completer
	cache    *cache.Store
	cfg      Config
	observer Observer
	calls    singleflight.Group
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. A nil store disables caching.
func NewExtractor(llm Completer, store *cache.Store, cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if cfg.SkillCap <= 0 {
		cfg.SkillCap = DefaultSkillCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		llm:    llm,
		cache:  store,
		cfg:    cfg,
		logger: logger.With("component", "skills_extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// llmKey is the cache key material for a raw model response.
type llmKey struct {
	JD     string `json:"jd"`
	Model  string `json:"model"`
	System string `json:"system"`
}

// resultKey is the cache key material for a finished extraction.
type resultKey struct {
	JD  string `json:"jd"`
	Cap int    `json:"cap"`
}

// Cached returns a previously stored result for jd without calling the model.
func (e *Extractor) Cached(jd string) (*Result, bool) {
	jd = strings.TrimSpace(jd)
	if jd == "" || e.cache == nil {
		return nil, false
	}
	var res Result
	if !e.cache.Get(cache.NamespaceSkills, e.resultKey(jd), &res) {
		return nil, false
	}
	return &res, true
}

// Extract returns the cleaned skills for jd, calling the model only when
// neither the result nor the raw response is cached.
func (e *Extractor) Extract(ctx context.Context, jd string) (res *Result, err error) {
	jd = strings.TrimSpace(jd)
	if jd == "" {
		return nil, ErrEmptyJobDescription
	}

	start := time.Now()
	defer func() { e.observe(OpExtraction, start, err) }()

	if cached, ok := e.Cached(jd); ok {
		e.logger.DebugContext(ctx, "skills result served from cache")
		return cached, nil
	}

	raw, err := e.complete(ctx, jd)
	if err != nil {
		return nil, err
	}

	res = build(raw, jd, e.cfg.SkillCap)
	if e.cache != nil {
		e.cache.Set(cache.NamespaceSkills, e.resultKey(jd), res, e.cfg.Compress)
	}

	e.logger.InfoContext(ctx, "skills extracted",
		"ranked", len(res.JobSkillsRanked),
		"flat", len(res.SkillsFlat))
	return res, nil
}

// Submit queues an extraction for jd on runner and returns the task id.
func (e *Extractor) Submit(ctx context.Context, runner Submitter, jd string) (string, error) {
	jd = strings.TrimSpace(jd)
	if jd == "" {
		return "", ErrEmptyJobDescription
	}

	return runner.Submit(ctx, task.TaskTypeSkillsExtraction, func(ctx context.Context) (any, error) {
		return e.Extract(ctx, jd)
	}, map[string]any{
		"jd_key":   cache.ComputeKey(jd)[:12],
		"jd_chars": len(jd),
		"model":    e.llm.Model(),
	})
}

// complete returns the parsed model response for jd. Concurrent requests
// for the same key share a single model call.
func (e *Extractor) complete(ctx context.Context, jd string) (*extraction, error) {
	key := llmKey{JD: jd, Model: e.llm.Model(), System: SystemPrompt}

	var text string
	if e.cache != nil && e.cache.Get(cache.NamespaceLLM, key, &text) {
		if ex, err := parseResponse(text); err == nil {
			e.logger.DebugContext(ctx, "LLM response served from cache")
			return ex, nil
		}
		e.logger.WarnContext(ctx, "cached LLM response is unparseable, calling model again")
	}

	v, err, shared := e.calls.Do(cache.ComputeKey(key), func() (any, error) {
		start := time.Now()
		text, err := e.llm.Complete(ctx, SystemPrompt, jd)
		e.observe(OpLLMCall, start, err)
		if err != nil {
			return nil, fmt.Errorf("skills extraction LLM call failed: %w", err)
		}

		ex, err := parseResponse(text)
		if err != nil {
			return nil, err
		}
		// Only parseable responses are cached; a bad answer is retried next time.
		if e.cache != nil {
			e.cache.Set(cache.NamespaceLLM, key, text, e.cfg.Compress)
		}
		return ex, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.DebugContext(ctx, "joined in-flight LLM call")
	}
	return v.(*extraction), nil
}

func (e *Extractor) resultKey(jd string) resultKey {
	return resultKey{JD: jd, Cap: e.cfg.SkillCap}
}

func (e *Extractor) observe(op string, start time.Time, err error) {
	if e.observer != nil {
		e.observer.Record(op, time.Since(start), err)
	}
}

// build turns a parsed model answer into a Result.
func build(ex *extraction, jd string, skillCap int) *Result {
	ranked := sanitizeRanked(ex.JobSkillsRanked, jd)
	return &Result{
		JobSkillsRanked:     ranked,
		BySectionTop3:       trimSections(ex.BySectionTop3),
		SkillsFlat:          flatten(capSkills(ranked, skillCap)),
		KeyResponsibilities: ex.KeyResponsibilities,
		CompanyValues:       ex.CompanyValues,
	}
}
