// Package core implements the import pipeline behind the HTTP layer:
// session lifecycle, the transactional save with its compensation log, the
// best-effort rollback, and the expiry sweeper.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"menu-import-service/internal/domain"
	"menu-import-service/internal/ingest"
	"menu-import-service/internal/metrics"
	"menu-import-service/internal/store"
	"menu-import-service/internal/validate"
)

// Service wires ingest, validation and storage into the import operations the
// handlers call. One instance is shared by all requests.
type Service struct {
	pool       *pgxpool.Pool
	sessions   *store.SessionStore
	menu       *store.MenuStore
	validator  *validate.Validator
	sessionTTL time.Duration
}

// NewService builds the service over a shared connection pool.
func NewService(pool *pgxpool.Pool, sessionTTL time.Duration) *Service {
	menu := store.NewMenuStore(pool)
	return &Service{
		pool:       pool,
		sessions:   store.NewSessionStore(pool),
		menu:       menu,
		validator:  validate.New(menu),
		sessionTTL: sessionTTL,
	}
}

// ParseUpload unpacks an upload, classifies and parses every CSV, validates
// the merged bundle, and persists a new session holding the results. The
// session lands in draft when validation produced errors, validated otherwise.
func (s *Service) ParseUpload(ctx context.Context, userID, businessID, filename, contentType string, data []byte) (*domain.ImportSession, error) {
	files, err := ingest.Unpack(filename, contentType, data)
	if err != nil {
		return nil, err
	}

	bundle, names, err := ingest.Aggregate(files)
	if err != nil {
		return nil, err
	}

	result := s.validator.Validate(ctx, bundle, businessID)
	metrics.ValidationIssues.WithLabelValues("error").Add(float64(len(result.Errors)))
	metrics.ValidationIssues.WithLabelValues("warning").Add(float64(len(result.Warnings)))

	now := time.Now().UTC()
	sess := &domain.ImportSession{
		ID:                 uuid.New(),
		UserID:             userID,
		BusinessID:         businessID,
		Status:             domain.StatusForValidation(result.Errors),
		ParsedData:         *bundle,
		ValidationErrors:   result.Errors,
		ValidationWarnings: result.Warnings,
		OriginalFiles:      names,
		ExpiresAt:          now.Add(s.sessionTTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues(string(sess.Status)).Inc()

	slog.InfoContext(ctx, "import session created",
		"session_id", sess.ID,
		"status", sess.Status,
		"files", len(names),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
	return sess, nil
}

// GetSession fetches one session scoped to its owner.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error) {
	return s.sessions.Get(ctx, id, userID)
}

// ListSessions returns the caller's sessions, optionally filtered by business
// and status, newest first.
func (s *Service) ListSessions(ctx context.Context, userID, businessID string, status domain.SessionStatus) ([]*domain.ImportSession, error) {
	return s.sessions.List(ctx, userID, businessID, status)
}

// UpdateSession replaces an editable session's bundle with corrected data and
// re-validates it, recomputing the draft/validated status.
func (s *Service) UpdateSession(ctx context.Context, id uuid.UUID, userID string, bundle *domain.ParsedImportData) (*domain.ImportSession, error) {
	sess, err := s.sessions.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.CanUpdate() {
		return nil, domain.NewTransitionError(sess.Status, "update")
	}

	result := s.validator.Validate(ctx, bundle, sess.BusinessID)
	metrics.ValidationIssues.WithLabelValues("error").Add(float64(len(result.Errors)))
	metrics.ValidationIssues.WithLabelValues("warning").Add(float64(len(result.Warnings)))

	sess.ParsedData = *bundle
	sess.ValidationErrors = result.Errors
	sess.ValidationWarnings = result.Warnings
	sess.Status = domain.StatusForValidation(result.Errors)

	if err := s.sessions.UpdateBundle(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession commits a validated session to the menu tables inside a single
// transaction. The confirm step re-checks the status under the same
// transaction, so a concurrent save or discard aborts the whole write with
// ErrSaveConflict. On success the session is confirmed and carries the
// rollback log.
func (s *Service) SaveSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error) {
	sess, err := s.sessions.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.CanSave() {
		return nil, domain.NewTransitionError(sess.Status, "save")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rollbackLog, err := saveBundle(ctx, s.menu.WithTx(tx), sess.BusinessID, &sess.ParsedData)
	if err != nil {
		metrics.Commits.WithLabelValues("failed").Inc()
		return nil, err
	}

	confirmed, err := s.sessions.WithTx(tx).Confirm(ctx, id, userID, rollbackLog)
	if err != nil {
		metrics.Commits.WithLabelValues("failed").Inc()
		return nil, err
	}
	if !confirmed {
		metrics.Commits.WithLabelValues("conflict").Inc()
		return nil, domain.ErrSaveConflict
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.Commits.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("commit save transaction: %w", err)
	}
	metrics.Commits.WithLabelValues("committed").Inc()

	sess.Status = domain.StatusConfirmed
	sess.RollbackData = rollbackLog
	slog.InfoContext(ctx, "import session saved",
		"session_id", id,
		"rollback_entries", len(rollbackLog),
	)
	return sess, nil
}

// DiscardSession abandons a session that has not been committed. The parsed
// data is kept for audit; only the status changes.
func (s *Service) DiscardSession(ctx context.Context, id uuid.UUID, userID string) error {
	sess, err := s.sessions.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if !sess.Status.CanDiscard() {
		return domain.NewTransitionError(sess.Status, "discard")
	}

	ok, err := s.sessions.SetStatus(ctx, id, userID, domain.StatusDiscarded,
		domain.StatusDraft, domain.StatusValidated)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSaveConflict
	}
	return nil
}

// RollbackSession undoes a confirmed import by replaying its compensation log
// in reverse. Each entry is applied independently; failures are logged and
// skipped so one missing row cannot block the rest. The session always moves
// to rolled_back afterwards.
func (s *Service) RollbackSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error) {
	sess, err := s.sessions.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.CanRollback() {
		return nil, domain.NewTransitionError(sess.Status, "roll back")
	}
	if len(sess.RollbackData) == 0 {
		return nil, domain.ErrNoRollbackData
	}

	applied := applyRollback(ctx, s.menu, sess.RollbackData)
	outcome := "complete"
	if applied < len(sess.RollbackData) {
		outcome = "partial"
	}
	metrics.Rollbacks.WithLabelValues(outcome).Inc()

	ok, err := s.sessions.SetStatus(ctx, id, userID, domain.StatusRolledBack, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSaveConflict
	}

	slog.InfoContext(ctx, "import session rolled back",
		"session_id", id,
		"applied", applied,
		"total", len(sess.RollbackData),
	)
	sess.Status = domain.StatusRolledBack
	return sess, nil
}

// DeleteSession removes one session row outright.
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID, userID string) error {
	n, err := s.sessions.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteAllSessions removes every session belonging to the caller and
// returns how many were removed.
func (s *Service) DeleteAllSessions(ctx context.Context, userID string) (int64, error) {
	return s.sessions.DeleteAll(ctx, userID)
}

// WriteIssuesCSV streams a session's validation issues as CSV.
func (s *Service) WriteIssuesCSV(w io.Writer, sess *domain.ImportSession, includeWarnings bool) error {
	return WriteIssuesCSV(w, sess, includeWarnings)
}

// Healthy reports whether the database is reachable.
func (s *Service) Healthy(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
