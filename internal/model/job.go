package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edvin/webhook-scheduler/internal/interval"
)

// JobType discriminates the two kinds of jobs.
type JobType string

const (
	TypeOnce  JobType = "once"
	TypeEvery JobType = "every"
)

// Schedule is the closed set of job schedules. A job fires either once at an
// absolute time or repeatedly on an interval; the two carry different data,
// so they are separate types rather than optional fields on Job.
type Schedule interface {
	Type() JobType
	schedule()
}

// OnceSchedule fires a single time at When.
type OnceSchedule struct {
	When time.Time
}

func (OnceSchedule) Type() JobType { return TypeOnce }
func (OnceSchedule) schedule()     {}

// EverySchedule fires repeatedly on a parsed recurrence interval.
type EverySchedule struct {
	Interval interval.Interval
}

func (EverySchedule) Type() JobType { return TypeEvery }
func (EverySchedule) schedule()     {}

// Target describes the outbound HTTP call a job performs.
type Target struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Job is a persisted definition of a webhook to fire once or repeatedly.
// LockedUntil is non-nil while a scheduler instance holds the execution
// lease; it never appears on the wire.
type Job struct {
	ID          string
	Schedule    Schedule
	Target      Target
	NextRunAt   time.Time
	LockedUntil *time.Time
	CreatedAt   time.Time
}

func (j *Job) Type() JobType {
	return j.Schedule.Type()
}

// IntervalString returns the recurrence expression, or "" for one-shot jobs.
func (j *Job) IntervalString() string {
	if s, ok := j.Schedule.(EverySchedule); ok {
		return s.Interval.String()
	}
	return ""
}

type jobJSON struct {
	ID        string     `json:"id"`
	Type      JobType    `json:"type"`
	Interval  string     `json:"interval,omitempty"`
	When      *time.Time `json:"when,omitempty"`
	NextRunAt time.Time  `json:"nextRunAt"`
	Target    Target     `json:"target"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (j *Job) MarshalJSON() ([]byte, error) {
	out := jobJSON{
		ID:        j.ID,
		Type:      j.Type(),
		NextRunAt: j.NextRunAt,
		Target:    j.Target,
		CreatedAt: j.CreatedAt,
	}
	switch s := j.Schedule.(type) {
	case OnceSchedule:
		when := s.When
		out.When = &when
	case EverySchedule:
		out.Interval = s.Interval.String()
	}
	return json.Marshal(out)
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var in jobJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	sched, err := NewSchedule(in.Type, in.Interval, in.When)
	if err != nil {
		return err
	}

	*j = Job{
		ID:        in.ID,
		Schedule:  sched,
		Target:    in.Target,
		NextRunAt: in.NextRunAt,
		CreatedAt: in.CreatedAt,
	}
	return nil
}

// NewSchedule builds a Schedule from its wire representation, rejecting
// combinations that do not belong to either job kind.
func NewSchedule(typ JobType, intervalExpr string, when *time.Time) (Schedule, error) {
	switch typ {
	case TypeOnce:
		if when == nil {
			return nil, fmt.Errorf("once job requires when")
		}
		if intervalExpr != "" {
			return nil, fmt.Errorf("once job cannot have an interval")
		}
		return OnceSchedule{When: *when}, nil
	case TypeEvery:
		if when != nil {
			return nil, fmt.Errorf("every job cannot have when")
		}
		iv, err := interval.Parse(intervalExpr)
		if err != nil {
			return nil, fmt.Errorf("every job interval: %w", err)
		}
		return EverySchedule{Interval: iv}, nil
	default:
		return nil, fmt.Errorf("unknown job type %q", typ)
	}
}
