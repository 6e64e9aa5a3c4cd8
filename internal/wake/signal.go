// Package wake provides a level-triggered, interruptible timed wait.
package wake

import (
	"context"
	"sync"
	"time"
)

// Reason tells why Wait returned.
type Reason int

const (
	TimedOut Reason = iota
	Fired
	Cancelled
)

func (r Reason) String() string {
	switch r {
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	default:
		return "timed_out"
	}
}

// Signal wakes every current and future waiter once fired. The zero value is
// not usable; use New.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire sets the signal. Safe to call any number of times from any goroutine.
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires, timeout elapses or ctx is done.
// A fired signal always wins, even if the timeout is not positive.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) Reason {
	if s.Fired() {
		return Fired
	}
	if timeout <= 0 {
		return TimedOut
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ch:
		return Fired
	case <-ctx.Done():
		return Cancelled
	case <-timer.C:
		return TimedOut
	}
}
