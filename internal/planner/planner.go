package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrGenerationInProgress is returned when a run for the same key is pending.
var ErrGenerationInProgress = errors.New("menu generation already in progress")

// NoticeKind classifies a user-facing status message.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticePartial NoticeKind = "partial"
	NoticeError   NoticeKind = "error"
)

// Notice is a status message emitted once per run.
type Notice struct {
	Kind    NoticeKind
	Message string
	Filled  int
	Total   int
	Err     error
}

// Notifier receives run status messages.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// GridSetter stores a completed grid. It is called at most once per run.
type GridSetter func(ctx context.Context, res *Result) error

// MenuGenerator produces a filled grid for a request. *Generator implements it.
type MenuGenerator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Planner runs generations with a per-key re-entrancy guard.
type Planner struct {
	gen MenuGenerator
	log *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPlanner creates a new Planner.
func NewPlanner(gen MenuGenerator, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{gen: gen, log: log, inFlight: make(map[string]struct{})}
}

// Run generates a menu for req and hands it to set. A second Run with the
// same key while the first is pending fails with ErrGenerationInProgress.
// Exactly one notice is delivered per call.
func (p *Planner) Run(ctx context.Context, key string, req Request, set GridSetter, notifier Notifier) (*Result, error) {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notice) {})
	}

	if !p.acquire(key) {
		notifier.Notify(ctx, Notice{Kind: NoticeError, Message: "A menu is already being generated.", Err: ErrGenerationInProgress})
		return nil, ErrGenerationInProgress
	}
	defer p.release(key)

	res, err := p.gen.Generate(ctx, req)
	if err != nil {
		p.log.Warn("menu generation failed", zap.String("key", key), zap.Error(err))
		notifier.Notify(ctx, Notice{Kind: NoticeError, Message: failureMessage(err), Err: err})
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		notifier.Notify(ctx, Notice{Kind: NoticeError, Message: failureMessage(err), Err: err})
		return nil, fmt.Errorf("menu generation cancelled: %w", err)
	}

	if set != nil {
		if err := set(ctx, res); err != nil {
			p.log.Error("failed to store generated menu", zap.String("key", key), zap.Error(err))
			notifier.Notify(ctx, Notice{Kind: NoticeError, Message: "The menu could not be saved.", Err: err})
			return nil, fmt.Errorf("failed to store generated menu: %w", err)
		}
	}

	if res.Partial() {
		notifier.Notify(ctx, Notice{
			Kind:    NoticePartial,
			Message: fmt.Sprintf("Only %d of %d meals could be planned. Add more recipes for a complete week.", res.Filled, res.Total),
			Filled:  res.Filled,
			Total:   res.Total,
		})
	} else {
		notifier.Notify(ctx, Notice{Kind: NoticeSuccess, Message: "Weekly menu generated.", Filled: res.Filled, Total: res.Total})
	}
	return res, nil
}

func (p *Planner) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *Planner) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, key)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoRecipes):
		return "No recipes available. Add some recipes before generating a menu."
	case errors.Is(err, ErrNoEnabledMeals):
		return "No meals are enabled in your preferences."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Menu generation was cancelled."
	default:
		return "Menu generation failed."
	}
}
