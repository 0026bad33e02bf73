// Package saga runs ordered compensations for multi-step writes that span
// stores without a shared transaction.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type compensation struct {
	name       string
	undo       func(context.Context) error
	bestEffort bool
}

// Saga collects compensations as forward steps succeed and runs them in
// reverse on Rollback. The zero value is not usable; call New.
type Saga struct {
	name   string
	steps  []compensation
	logger *slog.Logger
}

func New(name string, logger *slog.Logger) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{name: name, logger: logger}
}

// Defer registers a compensation whose failure is reported by Rollback.
func (s *Saga) Defer(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// DeferBestEffort registers a compensation whose failure is only logged.
func (s *Saga) DeferBestEffort(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo, bestEffort: true})
}

// Len reports the number of registered compensations.
func (s *Saga) Len() int {
	return len(s.steps)
}

// Rollback runs every compensation, last registered first. All of them run
// even when some fail; failures of non best-effort compensations are joined
// into the returned error.
func (s *Saga) Rollback(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			if c.bestEffort {
				s.logger.WarnContext(ctx, "best-effort compensation failed",
					"saga", s.name, "step", c.name, "error", err)
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}
