package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/webhook-scheduler/internal/model"
)

func mustEverySchedule(t *testing.T, expr string) model.Schedule {
	t.Helper()
	sched, err := model.NewSchedule(model.TypeEvery, expr, nil)
	require.NoError(t, err)
	return sched
}

// jobScanFunc returns a scan function yielding one jobs table row.
func jobScanFunc(id, typ string, intervalExpr *string, whenAt *time.Time, nextRunAt time.Time, lockedUntil *time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = typ
		*(dest[2].(**string)) = intervalExpr
		*(dest[3].(**time.Time)) = whenAt
		*(dest[4].(*time.Time)) = nextRunAt
		*(dest[5].(**time.Time)) = lockedUntil
		*(dest[6].(*string)) = "https://example.com/hook"
		*(dest[7].(*string)) = "POST"
		*(dest[8].(*[]byte)) = []byte(`{"X-Custom":"1"}`)
		*(dest[9].(*[]byte)) = []byte(`{"message":"hello world"}`)
		*(dest[10].(*time.Time)) = nextRunAt.Add(-time.Hour)
		return nil
	}
}

// ---------- Create ----------

func TestJobService_Create_Every(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	job := &model.Job{
		ID:        "job-1",
		Schedule:  mustEverySchedule(t, "5 minutes"),
		Target:    model.Target{URL: "https://example.com/hook", Method: "POST"},
		NextRunAt: time.Now().Add(5 * time.Minute),
		CreatedAt: time.Now(),
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Create(ctx, job)
	require.NoError(t, err)
	db.AssertExpectations(t)

	args := db.Calls[0].Arguments.Get(2).([]any)
	assert.Equal(t, "every", args[1])
	require.NotNil(t, args[2])
	assert.Equal(t, "5 minutes", *(args[2].(*string)))
	assert.Nil(t, args[3], "every job has no when")
}

func TestJobService_Create_Once(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	when := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	sched, err := model.NewSchedule(model.TypeOnce, "", &when)
	require.NoError(t, err)

	job := &model.Job{
		ID:        "job-2",
		Schedule:  sched,
		Target:    model.Target{URL: "https://example.com/hook", Method: "GET"},
		NextRunAt: when,
		CreatedAt: time.Now(),
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	require.NoError(t, svc.Create(ctx, job))

	args := db.Calls[0].Arguments.Get(2).([]any)
	assert.Equal(t, "once", args[1])
	assert.Nil(t, args[2], "once job has no interval")
	require.NotNil(t, args[3])
	assert.Equal(t, when, *(args[3].(*time.Time)))
}

func TestJobService_Create_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	job := &model.Job{
		ID:       "job-1",
		Schedule: mustEverySchedule(t, "5 minutes"),
		Target:   model.Target{URL: "https://example.com/hook", Method: "POST"},
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := svc.Create(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert job")
}

// ---------- GetByID ----------

func TestJobService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	expr := "5 minutes"
	next := time.Date(2026, 9, 1, 8, 5, 0, 0, time.UTC)
	row := &mockRow{scanFunc: jobScanFunc("job-1", "every", &expr, nil, next, nil)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	job, err := svc.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.TypeEvery, job.Type())
	assert.Equal(t, "5 minutes", job.IntervalString())
	assert.Equal(t, next, job.NextRunAt)
	assert.Equal(t, map[string]string{"X-Custom": "1"}, job.Target.Headers)
	assert.JSONEq(t, `{"message":"hello world"}`, string(job.Target.Body))
}

func TestJobService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := svc.GetByID(ctx, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

// ---------- Claim ----------

func TestJobService_Claim_Won(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	won, err := svc.Claim(ctx, "job-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestJobService_Claim_Lost(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	won, err := svc.Claim(ctx, "job-1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, won, "lost claim races are not errors")
}

func TestJobService_Claim_LeaseExtendsFromNow(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	before := time.Now()
	_, err := svc.Claim(ctx, "job-1", time.Minute)
	require.NoError(t, err)

	args := db.Calls[0].Arguments.Get(2).([]any)
	lockedUntil := args[1].(time.Time)
	assert.True(t, lockedUntil.After(before.Add(59*time.Second)))
	assert.True(t, lockedUntil.Before(time.Now().Add(61*time.Second)))
}

// ---------- FindDue ----------

func TestJobService_FindDue(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	expr := "1h"
	now := time.Now()
	rows := newMockRows(
		jobScanFunc("job-1", "every", &expr, nil, now.Add(-time.Minute), nil),
		jobScanFunc("job-2", "every", &expr, nil, now.Add(-time.Second), nil),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	due, err := svc.FindDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "job-1", due[0].ID)
	assert.Equal(t, "job-2", due[1].ID)
}

func TestJobService_FindDue_Empty(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newMockRows(), nil)

	due, err := svc.FindDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

// ---------- List ----------

func TestJobService_List_PagingArgs(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newMockRows(), nil)

	_, err := svc.List(ctx, 3, 10)
	require.NoError(t, err)

	args := db.Calls[0].Arguments.Get(2).([]any)
	assert.Equal(t, 10, args[0], "limit")
	assert.Equal(t, 20, args[1], "offset")
}

// ---------- Release / UpdateSchedule / DeleteByID ----------

func TestJobService_Release(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, svc.Release(ctx, "job-1"))
	db.AssertExpectations(t)
}

func TestJobService_UpdateSchedule(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	next := time.Now().Add(5 * time.Minute)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, svc.UpdateSchedule(ctx, "job-1", next))

	args := db.Calls[0].Arguments.Get(2).([]any)
	assert.Equal(t, next, args[1])
}

func TestJobService_DeleteByID_Idempotent(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	// Zero rows affected: already gone, or the id never existed. Not an error.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("DELETE 0"), nil)

	require.NoError(t, svc.DeleteByID(ctx, "never-existed"))
}
