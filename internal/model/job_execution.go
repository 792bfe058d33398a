package model

import "time"

// JobExecution is an immutable record of one webhook dispatch attempt. JobID
// is a reference, not an ownership relation; the record survives deletion of
// the job that produced it.
type JobExecution struct {
	ID            string    `json:"id"`
	JobID         string    `json:"jobId"`
	CreatedAt     time.Time `json:"createdAt"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"failureReason,omitempty"`
}
