// Package clock supplies the current instant in a configured time zone.
//
// Times come from the wall clock and are not protected against system clock
// jumps.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownTimezone = errors.New("unknown timezone")

type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// ConfigError reports a timezone identifier the tz database does not know.
type ConfigError struct {
	Timezone string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("clock: timezone %q: %v", e.Timezone, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type Zoned struct {
	loc *time.Location
}

// New returns a clock reporting time in tz. An empty tz means UTC.
func New(tz string) (*Zoned, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &Zoned{loc: loc}, nil
}

func (z *Zoned) Now() time.Time { return time.Now().In(z.loc) }

func (z *Zoned) Location() *time.Location { return z.loc }

// LoadLocation resolves tz against the tz database, wrapping failures in *ConfigError.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ConfigError{Timezone: tz, Err: fmt.Errorf("%w: %v", ErrUnknownTimezone, err)}
	}
	return loc, nil
}
