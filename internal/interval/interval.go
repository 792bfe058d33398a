// Package interval parses recurrence expressions for repeating jobs.
//
// Three forms are accepted: Go duration strings ("90s", "1h30m"), human
// intervals ("5 minutes", "1 day"), and standard 5-field cron expressions
// ("*/5 * * * *").
package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

var humanUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// Interval is a parsed recurrence expression. The zero value is not valid;
// use Parse.
type Interval struct {
	raw  string
	step time.Duration
	cron cron.Schedule
}

// Parse parses a recurrence expression.
func Parse(s string) (Interval, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Interval{}, fmt.Errorf("empty interval")
	}

	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return Interval{}, fmt.Errorf("interval %q must be positive", raw)
		}
		return Interval{raw: raw, step: d}, nil
	}

	if d, ok := parseHuman(raw); ok {
		return Interval{raw: raw, step: d}, nil
	}

	if len(strings.Fields(raw)) == 5 {
		sched, err := cronParser.Parse(raw)
		if err != nil {
			return Interval{}, fmt.Errorf("invalid cron expression %q: %w", raw, err)
		}
		return Interval{raw: raw, cron: sched}, nil
	}

	return Interval{}, fmt.Errorf("unrecognized interval %q", raw)
}

// parseHuman handles "5 minutes", "1 day", "hour" style expressions.
func parseHuman(s string) (time.Duration, bool) {
	fields := strings.Fields(strings.ToLower(s))

	count := 1.0
	unit := ""
	switch len(fields) {
	case 1:
		unit = fields[0]
	case 2:
		n, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		count = n
		unit = fields[1]
	default:
		return 0, false
	}

	unit = strings.TrimSuffix(unit, "s")
	base, ok := humanUnits[unit]
	if !ok {
		return 0, false
	}
	return time.Duration(count * float64(base)), true
}

// Next returns the run time that follows prev. For duration-based intervals
// this is prev plus the step, regardless of the current time, so schedules do
// not drift when the caller is late.
func (iv Interval) Next(prev time.Time) time.Time {
	if iv.cron != nil {
		return iv.cron.Next(prev)
	}
	return prev.Add(iv.step)
}

// String returns the expression as given by the caller.
func (iv Interval) String() string {
	return iv.raw
}
