// Package schedule evaluates 5-field cron expressions.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Evaluator returns the first trigger strictly after ref.
type Evaluator interface {
	NextAfter(expr string, ref time.Time) (time.Time, error)
}

type InvalidScheduleError struct {
	Expr string
	Err  error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrInvalidSchedule, e.Expr, e.Err)
}

func (e *InvalidScheduleError) Unwrap() []error { return []error{ErrInvalidSchedule, e.Err} }

// Cron evaluates standard crontab expressions and @descriptors in the
// location of the reference time.
type Cron struct{}

func (Cron) NextAfter(expr string, ref time.Time) (time.Time, error) {
	return NextRunTime(expr, ref)
}

// Validate validates a cron expression
func Validate(expr string) error {
	_, err := parse(expr)
	return err
}

// NextRunTime calculates the next run time for a cron expression
func NextRunTime(expr string, from time.Time) (time.Time, error) {
	s, err := parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := s.Next(from)
	if next.IsZero() {
		return time.Time{}, &InvalidScheduleError{Expr: expr, Err: errors.New("expression never fires")}
	}
	return next, nil
}

// Upcoming lists the next n trigger times after from.
func Upcoming(expr string, from time.Time, n int) ([]time.Time, error) {
	s, err := parse(expr)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	for t := from; len(out) < n; {
		t = s.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func parse(expr string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, &InvalidScheduleError{Expr: expr, Err: err}
	}
	return s, nil
}
