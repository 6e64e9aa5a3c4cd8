package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"cronmachine/internal/domain"
)

// execute runs a single attempt of t, selected as due at now. Panics are
// recovered and reported as a failed Result; nothing escapes past the task
// boundary.
func execute(t *domain.Task, now time.Time) (res domain.Result) {
	start := time.Now()
	res = domain.Result{
		AttemptID: "att_" + uuid.NewString(),
		TaskID:    t.ID,
		Scheduled: t.NextExecution,
		Selected:  now,
		Started:   start.In(now.Location()),
	}
	defer func() {
		if p := recover(); p != nil {
			res.Err = &ExecutionError{TaskID: t.ID, Err: fmt.Errorf("panic: %v", p), Stack: debug.Stack()}
		}
		res.Duration = time.Since(start)
	}()

	if err := t.Action(); err != nil {
		res.Err = &ExecutionError{TaskID: t.ID, Err: err}
	}
	return res
}

func (s *Service) record(ctx context.Context, e *entry, res domain.Result) {
	e.runs++
	if !res.OK() {
		e.failures++
		e.lastErr = res.Err.Error()

		ev := s.log.Error().
			Err(res.Err).
			Str("task_id", res.TaskID).
			Str("attempt_id", res.AttemptID).
			Dur("took", res.Duration)
		var ee *ExecutionError
		if errors.As(res.Err, &ee) && ee.Panicked() {
			ev = ev.Str("stack", string(ee.Stack))
		}
		ev.Msg("task failed")
	} else {
		s.log.Debug().
			Str("task_id", res.TaskID).
			Str("attempt_id", res.AttemptID).
			Dur("took", res.Duration).
			Msg("task finished")
	}

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), res); err != nil {
		s.log.Error().Err(err).Str("task_id", res.TaskID).Msg("failed to record attempt")
	}
}
