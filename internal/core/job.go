package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/webhook-scheduler/internal/model"
)

const jobColumns = `id, type, interval, when_at, next_run_at, locked_until, url, method, headers, body, created_at`

// JobService persists job definitions and implements the lease-based claim
// protocol that keeps concurrent scheduler instances from double-firing.
type JobService struct {
	db DB
}

func NewJobService(db DB) *JobService {
	return &JobService{db: db}
}

func (s *JobService) Create(ctx context.Context, job *model.Job) error {
	var intervalExpr *string
	var whenAt *time.Time
	switch sched := job.Schedule.(type) {
	case model.OnceSchedule:
		when := sched.When
		whenAt = &when
	case model.EverySchedule:
		expr := sched.Interval.String()
		intervalExpr = &expr
	default:
		return fmt.Errorf("create job: unknown schedule type %T", job.Schedule)
	}

	headers, err := marshalHeaders(job.Target.Headers)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO jobs (id, type, interval, when_at, next_run_at, url, method, headers, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, string(job.Type()), intervalExpr, whenAt, job.NextRunAt,
		job.Target.URL, job.Target.Method, headers, []byte(job.Target.Body), job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	job, err := scanJob(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs in insertion order. page is 1-based.
func (s *JobService) List(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// FindDue returns jobs whose next run time has passed and whose lease is free
// or expired.
func (s *JobService) FindDue(ctx context.Context, now time.Time) ([]model.Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE next_run_at <= $1 AND (locked_until IS NULL OR locked_until <= $1)
		 ORDER BY next_run_at`,
		now)
	if err != nil {
		return nil, fmt.Errorf("find due jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Claim atomically takes the execution lease for a job. It returns false when
// another instance holds an unexpired lease, which callers must treat as
// losing the race, not as an error. The lease rather than an indefinite lock
// keeps a crashed instance from stranding the job.
func (s *JobService) Claim(ctx context.Context, id string, lease time.Duration) (bool, error) {
	now := time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE jobs SET locked_until = $2
		 WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $3)`,
		id, now.Add(lease), now)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release clears the execution lease. Releasing a job that no longer exists
// is a no-op.
func (s *JobService) Release(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET locked_until = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("release job %s: %w", id, err)
	}
	return nil
}

func (s *JobService) UpdateSchedule(ctx context.Context, id string, nextRunAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET next_run_at = $2 WHERE id = $1`, id, nextRunAt)
	if err != nil {
		return fmt.Errorf("update schedule for job %s: %w", id, err)
	}
	return nil
}

// DeleteByID removes a job. Deleting a non-existent or malformed id is a
// no-op, not an error.
func (s *JobService) DeleteByID(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	return data, nil
}

func scanJob(scan func(dest ...any) error) (*model.Job, error) {
	var (
		job          model.Job
		typ          string
		intervalExpr *string
		whenAt       *time.Time
		headers      []byte
		body         []byte
	)
	err := scan(&job.ID, &typ, &intervalExpr, &whenAt, &job.NextRunAt, &job.LockedUntil,
		&job.Target.URL, &job.Target.Method, &headers, &body, &job.CreatedAt)
	if err != nil {
		return nil, err
	}

	expr := ""
	if intervalExpr != nil {
		expr = *intervalExpr
	}
	sched, err := model.NewSchedule(model.JobType(typ), expr, whenAt)
	if err != nil {
		return nil, fmt.Errorf("rebuild schedule: %w", err)
	}
	job.Schedule = sched

	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &job.Target.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if len(body) > 0 {
		job.Target.Body = json.RawMessage(body)
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
