package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return New(client, "", nil)
}

func TestClaimReturnsOnlyDueTasks(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now()

	dueID, err := s.ScheduleAccountEnabling(ctx, "acc-1", now.Add(-time.Second))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := s.ScheduleUnactivatedAccountDeletion(ctx, "acc-2", now.Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	tasks, err := s.Claim(ctx, now, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != dueID || tasks[0].Kind != KindEnableAccount || tasks[0].AccountID != "acc-1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	again, err := s.Claim(ctx, now, 10)
	if err != nil || len(again) != 0 {
		t.Fatalf("expected no tasks on second claim, got %+v %v", again, err)
	}

	pending, _ := s.Pending(ctx)
	if pending != 1 {
		t.Fatalf("expected 1 pending task, got %d", pending)
	}
}

func TestCancelRemovesTask(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now()

	id, err := s.ScheduleActiveUserSessionDeletion(ctx, "acc-1", 42, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.CancelActiveUserSessionDeletion(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.CancelActiveUserSessionDeletion(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second cancel, got %v", err)
	}

	tasks, _ := s.Claim(ctx, now, 10)
	if len(tasks) != 0 {
		t.Fatalf("cancelled task was claimed: %+v", tasks)
	}
}

func TestRunDueContinuesAfterHandlerError(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if _, err := s.ScheduleActiveUserSessionDeletion(ctx, "acc-1", int64(i+1), now.Add(-time.Minute)); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}

	var seen []int64
	n, err := s.RunDue(ctx, now, func(_ context.Context, task Task) error {
		seen = append(seen, task.IssuedAt)
		if task.IssuedAt == 2 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if n != 2 || len(seen) != 3 {
		t.Fatalf("expected 2 successes out of 3, got n=%d seen=%v", n, seen)
	}
}

func TestClaimIsExclusiveAcrossWorkers(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	now := time.Now()

	const total = 20
	for i := 0; i < total; i++ {
		if _, err := s.ScheduleAccountEnabling(ctx, "acc", now.Add(-time.Second)); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}

	var (
		mu      sync.Mutex
		claimed = map[domain.TaskID]int{}
		wg      sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := s.Claim(ctx, now, total)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			mu.Lock()
			for _, task := range tasks {
				claimed[task.ID]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(claimed) != total {
		t.Fatalf("expected %d distinct tasks, got %d", total, len(claimed))
	}
	for id, n := range claimed {
		if n != 1 {
			t.Fatalf("task %s claimed %d times", id, n)
		}
	}
}
