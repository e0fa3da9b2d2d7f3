package domain

import "time"

// RunStatus is the lifecycle state of one ingestion run. A run starts as
// RUNNING and ends in exactly one of the three terminal states.
type RunStatus string

const (
	RunRunning        RunStatus = "RUNNING"
	RunSuccess        RunStatus = "SUCCESS"
	RunPartialSuccess RunStatus = "PARTIAL_SUCCESS"
	RunFailed         RunStatus = "FAILED"
)

// ScraperLog is the audit row for one ingestion run: created at run start in
// RUNNING state and updated exactly once at run end.
type ScraperLog struct {
	ID               int64     `json:"id"`
	Source           string    `json:"source"`
	Status           RunStatus `json:"status"`
	RecordsFound     int       `json:"records_found"`
	RecordsNew       int       `json:"records_new"`
	RecordsDuplicate int       `json:"records_duplicate"`
	RecordsFailed    int       `json:"records_failed"`
	DurationMs       int64     `json:"duration_ms"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ErrorStack       string    `json:"error_stack,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}
