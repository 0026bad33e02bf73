package authengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/flows"
	"github.com/MrEthical07/authengine/scheduler"
)

// Task is a due deferred task, as delivered to HandleTask.
type Task = scheduler.Task

// RunScheduledTasks executes every task of the built-in scheduler due at now
// and returns how many succeeded. Failed tasks are logged and dropped.
func (e *Engine) RunScheduledTasks(ctx context.Context, now time.Time) (int, error) {
	if e.taskRunner == nil {
		return 0, ErrSchedulerUnavailable
	}
	return e.taskRunner.RunDue(ctx, now, e.HandleTask)
}

// RunScheduler polls the built-in scheduler every interval until ctx ends.
func (e *Engine) RunScheduler(ctx context.Context, interval time.Duration) error {
	if e.taskRunner == nil {
		return ErrSchedulerUnavailable
	}
	return e.taskRunner.Run(ctx, interval, e.HandleTask)
}

// HandleTask executes one due task. Tasks whose subject is gone succeed.
func (e *Engine) HandleTask(ctx context.Context, task Task) error {
	err := e.handleTask(ctx, task)
	if err != nil {
		e.metrics.Inc(MetricScheduledTaskFailure)
		return err
	}
	e.metrics.Inc(MetricScheduledTaskRun)
	return nil
}

func (e *Engine) handleTask(ctx context.Context, task Task) error {
	switch task.Kind {
	case scheduler.KindEnableAccount:
		err := e.status.EnableScheduled(ctx, task.AccountID, task.ID)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, flows.ErrAccountNotActivated) {
			return nil
		}
		return err

	case scheduler.KindDeleteUnactivatedAccount:
		account, err := e.accounts.ReadByID(ctx, task.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if account.Status != domain.AccountDisabledUntilActivation {
			return nil
		}
		if err := e.accounts.Delete(ctx, account.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		e.logger.InfoContext(ctx, "unactivated account deleted", "account_id", account.ID)
		return nil

	case scheduler.KindDeleteActiveUserSession:
		return e.sessions.Delete(ctx, task.AccountID, task.IssuedAt)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownTask, task.Kind)
	}
}
