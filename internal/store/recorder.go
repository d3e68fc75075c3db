// internal/store/recorder.go
package store

import (
	"context"
	"sync"

	"github.com/ColonelBlimp/cwtrainer/internal/model"
)

// Recorder buffers attempts in memory and writes them with their session
// on Flush. It satisfies model.AttemptSink without touching the database
// on the hot path.
type Recorder struct {
	mu       sync.Mutex
	store    *Store
	attempts []model.Attempt
}

// NewRecorder returns a recorder writing to s. A nil store keeps attempts
// in memory only.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s}
}

// RecordAttempt implements model.AttemptSink.
func (r *Recorder) RecordAttempt(a model.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

// Attempts returns a copy of the buffered attempts.
func (r *Recorder) Attempts() []model.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Attempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}

// Flush stores the session and its buffered attempts, then clears the
// buffer. Sessions without attempts are not stored.
func (r *Recorder) Flush(ctx context.Context, info model.SessionInfo) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil || len(r.attempts) == 0 {
		r.attempts = nil
		return 0, nil
	}
	id, err := r.store.InsertSession(ctx, info, r.attempts)
	if err != nil {
		return 0, err
	}
	r.attempts = nil
	return id, nil
}
