package models

import "fmt"

// BatchResult accumulates the outcome of a row-by-row upload.
type BatchResult struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// NewBatchResult returns an empty result with a non-nil error list.
func NewBatchResult() *BatchResult {
	return &BatchResult{Errors: []string{}}
}

// Succeed counts one committed row.
func (r *BatchResult) Succeed() {
	r.Processed++
}

// Fail records a row-level error message for the given 1-based row number.
func (r *BatchResult) Fail(row int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: ", row)+fmt.Sprintf(format, args...))
}

// Failed reports how many rows were rejected.
func (r *BatchResult) Failed() int {
	return len(r.Errors)
}
