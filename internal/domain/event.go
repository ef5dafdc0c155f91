package domain

import "time"

// RunStatus is the terminal state of a staging run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunReport summarizes one staging run for logs, metrics and the report
// topic consumed by alerting.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Archive    string    `json:"archive"`
	LoadDate   string    `json:"load_date"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`

	ObservationMembers int `json:"observation_members"`
	StationMembers     int `json:"station_members"`
	SkippedMembers     int `json:"skipped_members"`

	ObservationsRead int              `json:"observations_read"`
	Dedup            DedupStats       `json:"dedup"`
	Validation       ValidationResult `json:"validation"`
	StationsRead     int              `json:"stations_read"`

	Load LoadResult `json:"load"`
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
