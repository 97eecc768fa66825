// Package syncjob defines the progress model for long-running Alwatani
// synchronization jobs.
package syncjob

import "time"

// Progress is the reportable state of one user's in-flight sync job. It is
// held in process memory only and polled by dashboard clients.
type Progress struct {
	Stage           string    `json:"stage"`
	Current         int       `json:"current"`
	Total           int       `json:"total"`
	Message         string    `json:"message,omitempty"`
	CancelRequested bool      `json:"cancel_requested"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Update is a partial progress mutation. Nil numeric fields leave the stored
// values untouched; non-nil fields always overwrite, even with zero.
type Update struct {
	Stage   string
	Current *int
	Total   *int
	Message string
}

// Int returns a pointer to v, for building Updates.
func Int(v int) *int { return &v }

// Stage names used by the sync job.
const (
	StageLogin    = "login"
	StageFetching = "fetching"
	StageStoring  = "storing"
	StageDone     = "done"
	StageFailed   = "failed"
	StageCanceled = "canceled"
)
