// Package scheduler drives a fixed set of cron tasks from a single loop that
// sleeps until the earliest trigger and wakes early on Stop.
//
// Due tasks run one after another on the loop goroutine. A slow action delays
// the tasks behind it and the next wake computation; there is no worker pool
// and no per-task timeout.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cronmachine/internal/clock"
	"cronmachine/internal/domain"
	"cronmachine/internal/schedule"
	"cronmachine/internal/wake"
)

// DefaultIdleInterval is how long the loop sleeps when nothing is scheduled.
const DefaultIdleInterval = time.Minute

type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type Config struct {
	// Timezone is a tz database name such as "Europe/Berlin". Empty means UTC.
	Timezone string
}

// Recorder receives every execution attempt.
type Recorder interface {
	Record(ctx context.Context, r domain.Result) error
}

type Option func(*Service)

func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }

func WithEvaluator(e schedule.Evaluator) Option { return func(s *Service) { s.eval = e } }

func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithIdleInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithStrictSchedules makes an invalid schedule end Run with an error instead
// of disabling only the offending task.
func WithStrictSchedules() Option { return func(s *Service) { s.strict = true } }

type Service struct {
	reg      *Registry
	clock    clock.Clock
	eval     schedule.Evaluator
	log      zerolog.Logger
	recorder Recorder
	idle     time.Duration
	strict   bool

	state atomic.Int32
	wake  *wake.Signal

	mu    sync.RWMutex
	views []domain.TaskView
}

// NewService builds a scheduler over reg. It fails with *clock.ConfigError
// when cfg.Timezone is unknown.
func NewService(cfg Config, reg *Registry, opts ...Option) (*Service, error) {
	zc, err := clock.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = NewRegistry()
	}
	s := &Service{
		reg:   reg,
		clock: zc,
		eval:  schedule.Cron{},
		log:   log.Logger,
		idle:  DefaultIdleInterval,
		wake:  wake.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "scheduler").Logger()
	return s, nil
}

func (s *Service) State() State { return State(s.state.Load()) }

// Stop asks the loop to terminate and interrupts any wait in progress. It does
// not wait for the loop to exit; use the Handle from Spawn for that. Stop may
// be called any number of times, before Run or after it returned.
func (s *Service) Stop() {
	if !s.wake.Fired() {
		s.log.Info().Msg("scheduler stop requested")
	}
	s.state.CompareAndSwap(int32(Running), int32(Stopping))
	s.wake.Fire()
}

// Run executes the scheduling loop on the calling goroutine until Stop is
// called or ctx is done. It returns an error only in strict mode, for a task
// whose schedule cannot be evaluated. Run may be called once.
func (s *Service) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyStarted
	}
	defer func() {
		s.state.Store(int32(Stopped))
		s.log.Info().Msg("scheduler stopped")
	}()

	tasks := s.reg.freeze()
	entries := make([]*entry, len(tasks))
	now := s.clock.Now()
	for i, t := range tasks {
		t.LastExecution = now
		entries[i] = &entry{task: t}
	}
	s.publish(entries)

	s.log.Info().
		Int("tasks", len(entries)).
		Str("tz", now.Location().String()).
		Msg("scheduler started")

	for !s.stopping(ctx) {
		target, err := s.plan(entries)
		if err != nil {
			s.publish(entries)
			return err
		}
		s.publish(entries)

		now = s.clock.Now()
		if sleep := target.Sub(now); sleep > 0 {
			if r := s.wake.Wait(ctx, sleep); r != wake.TimedOut {
				s.log.Debug().Stringer("reason", r).Msg("wait interrupted")
				break
			}
		} else {
			s.log.Warn().
				Dur("behind", -sleep).
				Time("wake_target", target).
				Msg("no wait time, schedule computation is lagging")
		}

		s.runDue(ctx, entries, s.clock.Now())
		s.publish(entries)
	}
	s.state.CompareAndSwap(int32(Running), int32(Stopping))
	return nil
}

// Handle tracks a loop started with Spawn.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the loop has exited and returns Run's error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Spawn runs the loop on its own goroutine and returns immediately.
func (s *Service) Spawn(ctx context.Context) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.err = s.Run(ctx)
	}()
	s.log.Info().Msg("scheduler will start in background")
	return h
}

func (s *Service) stopping(ctx context.Context) bool {
	return s.wake.Fired() || ctx.Err() != nil
}

// plan recomputes every enabled task's next execution from its last one and
// returns the earliest as the wake target. Tasks that are not due soon are
// still re-evaluated each time; their anchor only moves when they run.
func (s *Service) plan(entries []*entry) (time.Time, error) {
	var target time.Time
	enabled := 0
	for _, e := range entries {
		t := e.task
		if t.Disabled {
			continue
		}
		next, err := s.eval.NextAfter(t.Schedule, t.LastExecution)
		if err != nil {
			if s.strict {
				return time.Time{}, fmt.Errorf("scheduler: task %q: %w", t.ID, err)
			}
			t.Disabled, t.Err, t.NextExecution = true, err, time.Time{}
			s.log.Error().
				Err(err).
				Str("task_id", t.ID).
				Str("schedule", t.Schedule).
				Msg("invalid schedule, task disabled")
			continue
		}
		t.NextExecution = next
		enabled++
		if target.IsZero() || next.Before(target) {
			target = next
		}
	}

	if enabled == 0 {
		s.log.Warn().
			Int("tasks", len(entries)).
			Dur("wait", s.idle).
			Msg("task list is empty, waiting for idle interval")
		target = s.clock.Now().Add(s.idle)
	}
	return target, nil
}

// runDue runs every task whose next execution is at or before now, in
// registration order. Each attempt sets the task's last execution to now,
// whatever its outcome.
func (s *Service) runDue(ctx context.Context, entries []*entry, now time.Time) {
	for _, e := range entries {
		t := e.task
		if t.Disabled || t.NextExecution.After(now) {
			continue
		}
		res := execute(t, now)
		t.LastExecution = now
		s.record(ctx, e, res)
	}
}
