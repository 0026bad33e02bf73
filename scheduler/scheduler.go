package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
)

// Kind names what a task does when it comes due.
type Kind string

const (
	KindEnableAccount            Kind = "enable_account"
	KindDeleteUnactivatedAccount Kind = "delete_unactivated_account"
	KindDeleteActiveUserSession  Kind = "delete_active_user_session"
)

var ErrUnavailable = errors.New("scheduler backend unavailable")

// Task is one deferred unit of work.
type Task struct {
	ID        domain.TaskID `json:"id"`
	Kind      Kind          `json:"kind"`
	AccountID string        `json:"accountId"`
	IssuedAt  int64         `json:"issuedAt,omitempty"`
	DueAt     time.Time     `json:"dueAt"`
}

// Handler executes a due task.
type Handler func(ctx context.Context, task Task) error

// Scheduler is a delayed task queue in Redis. Due times live in a sorted set
// scored by unix milliseconds; payloads live in per-task keys. A task is
// claimed by whichever worker removes it from the sorted set, so concurrent
// workers never run the same task twice.
type Scheduler struct {
	redis  redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func New(client redis.UniversalClient, prefix string, logger *slog.Logger) *Scheduler {
	if prefix == "" {
		prefix = "asq"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{redis: client, prefix: prefix, logger: logger.With("component", "scheduler")}
}

func (s *Scheduler) queueKey() string {
	return s.prefix + ":due"
}

func (s *Scheduler) taskKey(id domain.TaskID) string {
	return s.prefix + ":task:" + string(id)
}

func (s *Scheduler) ScheduleAccountEnabling(ctx context.Context, accountID string, at time.Time) (domain.TaskID, error) {
	return s.schedule(ctx, Task{Kind: KindEnableAccount, AccountID: accountID, DueAt: at})
}

func (s *Scheduler) CancelAccountEnabling(ctx context.Context, id domain.TaskID) error {
	return s.Cancel(ctx, id)
}

func (s *Scheduler) ScheduleUnactivatedAccountDeletion(ctx context.Context, accountID string, at time.Time) (domain.TaskID, error) {
	return s.schedule(ctx, Task{Kind: KindDeleteUnactivatedAccount, AccountID: accountID, DueAt: at})
}

func (s *Scheduler) CancelUnactivatedAccountDeletion(ctx context.Context, id domain.TaskID) error {
	return s.Cancel(ctx, id)
}

func (s *Scheduler) ScheduleActiveUserSessionDeletion(ctx context.Context, accountID string, issuedAt int64, at time.Time) (domain.TaskID, error) {
	return s.schedule(ctx, Task{Kind: KindDeleteActiveUserSession, AccountID: accountID, IssuedAt: issuedAt, DueAt: at})
}

func (s *Scheduler) CancelActiveUserSessionDeletion(ctx context.Context, id domain.TaskID) error {
	return s.Cancel(ctx, id)
}

func (s *Scheduler) schedule(ctx context.Context, task Task) (domain.TaskID, error) {
	task.ID = domain.TaskID(uuid.NewString())
	data, err := json.Marshal(&task)
	if err != nil {
		return "", err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.taskKey(task.ID), data, 0)
		pipe.ZAdd(ctx, s.queueKey(), redis.Z{Score: float64(task.DueAt.UnixMilli()), Member: string(task.ID)})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return task.ID, nil
}

// Cancel removes a pending task. Cancelling an unknown or already-run task
// yields domain.ErrNotFound.
func (s *Scheduler) Cancel(ctx context.Context, id domain.TaskID) error {
	if id == "" {
		return domain.ErrNotFound
	}
	var removed *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, s.queueKey(), string(id))
		pipe.Del(ctx, s.taskKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if removed.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Pending reports the number of tasks not yet claimed.
func (s *Scheduler) Pending(ctx context.Context) (int64, error) {
	n, err := s.redis.ZCard(ctx, s.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Claim removes up to limit tasks due at or before now and returns them.
func (s *Scheduler) Claim(ctx context.Context, now time.Time, limit int64) ([]Task, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.queueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		n, err := s.redis.ZRem(ctx, s.queueKey(), id).Result()
		if err != nil {
			return tasks, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 0 {
			// claimed by another worker
			continue
		}

		data, err := s.redis.GetDel(ctx, s.taskKey(domain.TaskID(id))).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return tasks, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			s.logger.Warn("dropping undecodable task", "task_id", id, "error", err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// RunDue claims every task due at now and hands each to h. Handler errors are
// logged and do not stop the batch. It returns the number of tasks handled
// without error.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time, h Handler) (int, error) {
	const batch = 100
	done := 0
	for {
		tasks, err := s.Claim(ctx, now, batch)
		if err != nil {
			return done, err
		}
		for _, task := range tasks {
			if err := h(ctx, task); err != nil {
				s.logger.WarnContext(ctx, "scheduled task failed",
					"task_id", task.ID, "kind", task.Kind, "account_id", task.AccountID, "error", err)
				continue
			}
			done++
		}
		if len(tasks) < batch {
			return done, nil
		}
	}
}

// Run polls for due tasks every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, h Handler) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunDue(ctx, time.Now(), h); err != nil {
			s.logger.ErrorContext(ctx, "scheduler poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
