// Package dispatch performs the outbound HTTP call for a claimed job and
// classifies the outcome.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edvin/webhook-scheduler/internal/model"
)

// System headers attached to every outbound webhook request. They take
// precedence over caller-supplied headers on key collision.
const (
	HeaderJobID       = "X-Scheduler-Job-Id"
	HeaderJobInterval = "X-Scheduler-Job-Interval"
	HeaderExecutionID = "X-Scheduler-Job-Execution-Id"
)

// DefaultTimeout bounds how long a single dispatch can hold a job's lease.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of one dispatch attempt. FailureReason is empty when
// Success is true.
type Result struct {
	Success       bool
	FailureReason string
}

type Dispatcher struct {
	client *http.Client
}

// NewDispatcher creates a Dispatcher with a per-call timeout. A non-positive
// timeout falls back to DefaultTimeout.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch issues the HTTP call described by target. It never returns an
// error: any failure, transport-level or non-2xx, is folded into the Result
// for the caller to record.
func (d *Dispatcher) Dispatch(ctx context.Context, target model.Target, jobID, intervalExpr, executionID string) Result {
	var body io.Reader
	if len(target.Body) > 0 {
		body = bytes.NewReader(target.Body)
	}

	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, body)
	if err != nil {
		return failure(err.Error())
	}

	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderJobID, jobID)
	req.Header.Set(HeaderJobInterval, intervalExpr)
	req.Header.Set(HeaderExecutionID, executionID)

	resp, err := d.client.Do(req)
	if err != nil {
		return failure(err.Error())
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Success: true}
	}
	return failure(fmt.Sprintf("%d - %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func failure(reason string) Result {
	return Result{Success: false, FailureReason: reason}
}
