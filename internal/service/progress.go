package service

import (
	"sync"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/domain/syncjob"
)

// ProgressTracker holds the in-memory progress of each user's sync job. It
// is created at process start and passed explicitly to everything that
// reports or reads progress; state never survives a restart.
//
// Keys are independent across users: the sync job is the single writer for
// its key and polling dashboard clients are the readers.
type ProgressTracker struct {
	mu   sync.RWMutex
	jobs map[string]*syncjob.Progress
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{jobs: make(map[string]*syncjob.Progress)}
}

// Update merges a partial update into the user's record, creating one if
// absent. Stage and Message apply only when non-empty; Current and Total
// always overwrite when supplied, so stale counts never persist across
// partial updates. UpdatedAt is stamped on every call.
func (t *ProgressTracker) Update(userID string, u syncjob.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	p, ok := t.jobs[userID]
	if !ok {
		p = &syncjob.Progress{StartedAt: now}
		t.jobs[userID] = p
	}

	if u.Stage != "" {
		p.Stage = u.Stage
	}
	if u.Message != "" {
		p.Message = u.Message
	}
	if u.Current != nil {
		p.Current = *u.Current
	}
	if u.Total != nil {
		p.Total = *u.Total
	}
	p.UpdatedAt = now
}

// Read returns a copy of the user's progress record.
func (t *ProgressTracker) Read(userID string) (syncjob.Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.jobs[userID]
	if !ok {
		return syncjob.Progress{}, false
	}
	return *p, true
}

// Clear removes the user's record entirely.
func (t *ProgressTracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, userID)
}

// RequestCancel sets the cooperative cancellation flag and message. The
// in-flight job observes it at its next checkpoint; nothing is interrupted
// forcibly.
func (t *ProgressTracker) RequestCancel(userID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.jobs[userID]
	if !ok {
		p = &syncjob.Progress{StartedAt: time.Now()}
		t.jobs[userID] = p
	}
	p.CancelRequested = true
	if message != "" {
		p.Message = message
	}
	p.UpdatedAt = time.Now()
}

// ClearCancel resets the cancellation flag without touching the rest of the
// record.
func (t *ProgressTracker) ClearCancel(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.jobs[userID]; ok {
		p.CancelRequested = false
		p.UpdatedAt = time.Now()
	}
}

// IsCancelled reports whether cancellation has been requested for the user's
// job.
func (t *ProgressTracker) IsCancelled(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.jobs[userID]
	return ok && p.CancelRequested
}
