// internal/room/scheduler.go
package room

import "time"

// Handle cancels a scheduled callback. *time.Timer satisfies it.
type Handle interface {
	Stop() bool
}

// Scheduler is the coordinator's source of time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Handle
}

type wallClock struct{}

// WallClock schedules on real timers.
func WallClock() Scheduler { return wallClock{} }

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}
