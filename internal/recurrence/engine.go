// Package recurrence expands RFC 5545 recurrence rules into reservation dates.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	// ErrInvalidRule indicates the RRULE text could not be parsed.
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrInvalidWindow indicates the window ends before it starts.
	ErrInvalidWindow = errors.New("recurrence: window end precedes start")
	// ErrSeriesTooLong indicates the rule yields more dates than allowed.
	ErrSeriesTooLong = errors.New("recurrence: series exceeds the maximum length")
)

// Engine expands recurrence rules into calendar dates.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates rules in loc. A nil loc means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Expand returns the distinct dates, at midnight UTC and ascending, on which
// rule fires between start and until inclusive. COUNT and UNTIL inside the rule
// narrow the window further. More than limit dates is an error; limit <= 0
// disables the check.
func (e *Engine) Expand(rule string, start, until time.Time, limit int) ([]time.Time, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}

	first := midnight(start, loc)
	last := midnight(until, loc)
	if last.Before(first) {
		return nil, ErrInvalidWindow
	}

	text := strings.TrimSpace(rule)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "RRULE:"), "rrule:")
	options, err := rrule.StrToROptionInLocation(text, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	options.Dtstart = first
	r, err := rrule.NewRRule(*options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	end := last.AddDate(0, 0, 1)
	seen := make(map[string]struct{})
	var dates []time.Time
	next := r.Iterator()
	for {
		occurrence, ok := next()
		if !ok || !occurrence.Before(end) {
			break
		}
		day := dateUTC(occurrence.In(loc))
		key := day.Format(time.DateOnly)
		if _, dup := seen[key]; dup {
			continue
		}
		if limit > 0 && len(dates) == limit {
			return nil, fmt.Errorf("%w: more than %d dates", ErrSeriesTooLong, limit)
		}
		seen[key] = struct{}{}
		dates = append(dates, day)
	}
	return dates, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dateUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
