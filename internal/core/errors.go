package core

import "errors"

// ErrJobNotFound is returned when a job id does not resolve, including
// malformed ids. The API boundary maps it to 404.
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidJobID is returned when a jobId filter value is not a well-formed
// identifier. The API boundary maps it to 400.
var ErrInvalidJobID = errors.New("jobId format is invalid")
