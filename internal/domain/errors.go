package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the web layer, which maps them to status codes.
var (
	// ErrSessionNotFound means no session exists for (session_id, user_id).
	ErrSessionNotFound = errors.New("import session not found")

	// ErrSaveConflict means a concurrent request already moved the session out
	// of validated while a save was in flight. The transaction is aborted.
	ErrSaveConflict = errors.New("session was modified by a concurrent request")

	// ErrNoRollbackData means a rollback was requested for a session that
	// carries no compensation log.
	ErrNoRollbackData = errors.New("session has no rollback data")
)

// IngestError marks a malformed upload: a corrupt archive, an empty buffer,
// or CSV that fails at the syntax level. Fatal to the request; no session
// is created.
type IngestError struct {
	Reason string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
	}
	return "ingest: " + e.Reason
}

func (e *IngestError) Unwrap() error { return e.Err }

// NewIngestError wraps err with an upload-level reason.
func NewIngestError(reason string, err error) *IngestError {
	return &IngestError{Reason: reason, Err: err}
}

// TransitionError marks an illegal session state transition, such as saving
// a draft or discarding a confirmed session. It never corrupts session state.
type TransitionError struct {
	From   SessionStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a session with status %q", e.Action, e.From)
}

// NewTransitionError reports that action is not allowed from the given status.
func NewTransitionError(from SessionStatus, action string) *TransitionError {
	return &TransitionError{From: from, Action: action}
}

// ResolutionError marks an unresolved natural-key reference discovered during
// the transactional save. It aborts the whole commit.
type ResolutionError struct {
	Entity EntityKind
	Key    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q", e.Entity, e.Key)
}

// NewResolutionError reports that key could not be resolved for kind.
func NewResolutionError(kind EntityKind, key string) *ResolutionError {
	return &ResolutionError{Entity: kind, Key: key}
}
