package model

import "time"

// RunKind identifies the command that produced a run.
type RunKind string

const (
	RunKindDirectory RunKind = "directory"
	RunKindReconcile RunKind = "reconcile"
	RunKindStaffing  RunKind = "staffing"
	RunKindPOS       RunKind = "pos"
)

// RunStatus represents the current state of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single invocation of one of the data collection or
// reconciliation jobs.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Source    string    `json:"source"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats holds the outcome counters of a run.
type RunStats struct {
	Items      int   `json:"items"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Rows       int   `json:"rows"`
	Matched    int   `json:"matched,omitempty"`
	Unmatched  int   `json:"unmatched,omitempty"`
	Extras     int   `json:"extras,omitempty"`
	DurationMs int64 `json:"duration_ms"`
}

// Failure is a per-item error recorded without aborting the run.
type Failure struct {
	ID        int64     `json:"id,omitempty"`
	RunID     string    `json:"run_id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"` // "transient" or "permanent"
	CreatedAt time.Time `json:"created_at"`
}

// Decision records the reconciliation outcome for one canonical identity or
// one unclaimed external group.
type Decision struct {
	RunID     string `json:"run_id"`
	Dataset   string `json:"dataset"`
	Facility  string `json:"facility"`
	GroupName string `json:"group_name,omitempty"`
	Status    string `json:"status"`
	Score     int    `json:"score"`
	Signals   string `json:"signals,omitempty"`
	Rows      int    `json:"rows"`
}
