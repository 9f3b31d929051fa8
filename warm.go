package cachefront

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Warmer pre-fills caches at startup or after recovery by running named
// warm tasks in parallel. Task failures never cancel siblings; Run returns
// them aggregated so callers can log and move on. Warming failures must not
// block startup.
type Warmer struct {
	log   Logger
	limit int

	mu    sync.Mutex
	tasks []warmTask
}

type warmTask struct {
	name string
	run  func(ctx context.Context) error
}

// NewWarmer builds a warmer. limit bounds concurrent tasks; <= 0 means
// unbounded.
func NewWarmer(log Logger, limit int) *Warmer {
	if log == nil {
		log = NopLogger{}
	}
	return &Warmer{log: log, limit: limit}
}

func (w *Warmer) Add(name string, run func(ctx context.Context) error) {
	w.mu.Lock()
	w.tasks = append(w.tasks, warmTask{name: name, run: run})
	w.mu.Unlock()
}

// Run executes every registered task and waits for all of them.
func (w *Warmer) Run(ctx context.Context) error {
	w.mu.Lock()
	tasks := make([]warmTask, len(w.tasks))
	copy(tasks, w.tasks)
	w.mu.Unlock()

	var (
		g     errgroup.Group
		errMu sync.Mutex
		errs  error
	)
	if w.limit > 0 {
		g.SetLimit(w.limit)
	}
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if err := t.run(ctx); err != nil {
				w.log.Warn("warm task failed", Fields{"task": t.name, "err": err})
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("warm %s: %w", t.name, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
