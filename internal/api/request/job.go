package request

import (
	"encoding/json"
	"time"
)

type CreateJobTarget struct {
	URL     string            `json:"url" validate:"required,url"`
	Method  string            `json:"method" validate:"required,oneof=GET POST PATCH PUT DELETE"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
}

type CreateJob struct {
	Type     string          `json:"type" validate:"required,oneof=once every"`
	Interval string          `json:"interval"`
	When     *time.Time      `json:"when"`
	Target   CreateJobTarget `json:"target" validate:"required"`
}

// HasBody reports whether the target carries an explicit body. A JSON null is
// treated as absent.
func (t CreateJobTarget) HasBody() bool {
	return len(t.Body) > 0 && string(t.Body) != "null"
}
