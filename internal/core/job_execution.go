package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/webhook-scheduler/internal/model"
	"github.com/edvin/webhook-scheduler/internal/platform"
)

// JobExecutionService records dispatch outcomes. Records reference jobs by id
// only; there is no foreign key, so an execution can be written for a job
// that was deleted while its dispatch was in flight.
type JobExecutionService struct {
	db DB
}

func NewJobExecutionService(db DB) *JobExecutionService {
	return &JobExecutionService{db: db}
}

func (s *JobExecutionService) Create(ctx context.Context, exec *model.JobExecution) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO job_executions (id, job_id, created_at, success, failure_reason)
		 VALUES ($1, $2, $3, $4, $5)`,
		exec.ID, exec.JobID, exec.CreatedAt, exec.Success, exec.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("insert job execution: %w", err)
	}
	return nil
}

// List returns executions most recent first, optionally filtered by job id.
// page is 1-based.
func (s *JobExecutionService) List(ctx context.Context, page, pageSize int, jobID string) ([]model.JobExecution, error) {
	query := `SELECT id, job_id, created_at, success, failure_reason FROM job_executions`
	args := []any{}
	argIdx := 1

	if jobID != "" {
		if !platform.ValidID(jobID) {
			return nil, ErrInvalidJobID
		}
		query += fmt.Sprintf(` WHERE job_id = $%d`, argIdx)
		args = append(args, jobID)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list job executions: %w", err)
	}
	defer rows.Close()

	var execs []model.JobExecution
	for rows.Next() {
		var e model.JobExecution
		if err := rows.Scan(&e.ID, &e.JobID, &e.CreatedAt, &e.Success, &e.FailureReason); err != nil {
			return nil, fmt.Errorf("scan job execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job executions: %w", err)
	}
	return execs, nil
}

// PurgeOlderThan deletes executions past the retention horizon and returns
// how many were removed.
func (s *JobExecutionService) PurgeOlderThan(ctx context.Context, horizon time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM job_executions WHERE created_at < $1`, time.Now().Add(-horizon))
	if err != nil {
		return 0, fmt.Errorf("purge job executions: %w", err)
	}
	return tag.RowsAffected(), nil
}
