// Package scheduler is a Redis delayed task queue implementing
// [domain.Scheduler]. Workers drain it with [Scheduler.RunDue] or the
// polling loop [Scheduler.Run].
package scheduler
