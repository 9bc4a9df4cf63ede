package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of an import session.
type SessionStatus string

const (
	StatusDraft      SessionStatus = "draft"
	StatusValidated  SessionStatus = "validated"
	StatusConfirmed  SessionStatus = "confirmed"
	StatusDiscarded  SessionStatus = "discarded"
	StatusRolledBack SessionStatus = "rolled_back"
)

// ValidationIssue is a single error or warning produced by the validator,
// carrying provenance so the operator can locate the offending cell.
type ValidationIssue struct {
	File    string `json:"file"`
	Row     int    `json:"row"`
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// RollbackAction distinguishes the two reversible operations the saver records.
type RollbackAction string

const (
	ActionCreate RollbackAction = "create"
	ActionUpdate RollbackAction = "update"
)

// RollbackOperation is one entry in a session's compensation log.
// For updates, PreviousData holds the full prior snapshot to write back.
type RollbackOperation struct {
	EntityType   EntityKind     `json:"entityType"`
	Action       RollbackAction `json:"action"`
	ID           string         `json:"id"`
	PreviousData []byte         `json:"previousData,omitempty"`
}

// ImportSession is the staged, reviewable unit of one import batch.
type ImportSession struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             string              `json:"user_id"`
	BusinessID         string              `json:"business_id"`
	Status             SessionStatus       `json:"status"`
	ParsedData         ParsedImportData    `json:"parsedData"`
	ValidationErrors   []ValidationIssue   `json:"validationErrors"`
	ValidationWarnings []ValidationIssue   `json:"validationWarnings"`
	OriginalFiles      []string            `json:"originalFiles"`
	RollbackData       []RollbackOperation `json:"rollbackData,omitempty"`
	ExpiresAt          time.Time           `json:"expires_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// StatusForValidation returns the status a session takes after a validation
// pass: any error forces draft, otherwise the session is ready for commit.
func StatusForValidation(errs []ValidationIssue) SessionStatus {
	if len(errs) > 0 {
		return StatusDraft
	}
	return StatusValidated
}

// CanUpdate reports whether the session's bundle may still be replaced.
func (s SessionStatus) CanUpdate() bool {
	return s == StatusDraft || s == StatusValidated
}

// CanDiscard reports whether the session may be discarded. Confirmed and
// already-terminal sessions cannot be discarded.
func (s SessionStatus) CanDiscard() bool {
	return s == StatusDraft || s == StatusValidated
}

// CanSave reports whether the session is eligible for the transactional save.
func (s SessionStatus) CanSave() bool {
	return s == StatusValidated
}

// CanRollback reports whether the session may be rolled back.
func (s SessionStatus) CanRollback() bool {
	return s == StatusConfirmed
}
