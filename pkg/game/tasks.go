package game

import (
	"sync"

	"go.uber.org/zap"
)

// Runner executes fire-and-forget background work (AI turns, persistence
// writes, deadline updates, broadcasts) behind a log-and-drop error
// boundary, so a failing side effect never feeds back into the action
// that triggered it.
type Runner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRunner creates a task runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Go runs fn on its own goroutine. Errors and panics are logged and
// dropped.
func (r *Runner) Go(name string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("background task panicked",
					zap.String("task", name), zap.Any("panic", p))
			}
		}()
		if err := fn(); err != nil {
			r.logger.Error("background task failed",
				zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every task started so far has finished, used by
// shutdown and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
