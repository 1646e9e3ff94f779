// Package reporter routes failures to either the session-wide status or a
// field-local note. Only autosave failures are field-local; everything else,
// including a field-local failure that names no field, goes to the status so
// that nothing is dropped.
package reporter

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
)

// Reporter holds the current status and field notes of one session.
type Reporter struct {
	mu     sync.RWMutex
	status *errors.Failure
	notes  map[string]*errors.Failure
	logger *zerolog.Logger
}

// New creates a reporter. A nil logger uses the default logger.
func New(logger *zerolog.Logger) *Reporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reporter{
		notes:  make(map[string]*errors.Failure),
		logger: logger,
	}
}

// Report routes f. It returns true when f became a field note.
func (r *Reporter) Report(f *errors.Failure) bool {
	if f == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Kind.FieldLocal() && f.Field != "" {
		r.notes[f.Field] = f
		r.logger.Warn().
			Str("kind", string(f.Kind)).
			Str("field", f.Field).
			Err(f.Err).
			Msg("Field failure")
		return true
	}

	r.status = f
	r.logger.Error().
		Str("kind", string(f.Kind)).
		Err(f.Err).
		Msg(f.Message)
	return false
}

// Status returns the session-wide failure, if any.
func (r *Reporter) Status() *errors.Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// ClearStatus removes the session-wide failure.
func (r *Reporter) ClearStatus() {
	r.mu.Lock()
	r.status = nil
	r.mu.Unlock()
}

// Note returns the note for a field, if any.
func (r *Reporter) Note(field string) (*errors.Failure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.notes[field]
	return f, ok
}

// Notes returns a copy of all field notes.
func (r *Reporter) Notes() map[string]*errors.Failure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*errors.Failure, len(r.notes))
	for k, v := range r.notes {
		out[k] = v
	}
	return out
}

// ClearNote removes the note for a field.
func (r *Reporter) ClearNote(field string) {
	r.mu.Lock()
	delete(r.notes, field)
	r.mu.Unlock()
}

// Reset clears the status and every note.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.status = nil
	r.notes = make(map[string]*errors.Failure)
	r.mu.Unlock()
}
