package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"menu-import-service/internal/domain"
)

// SessionStore persists import sessions. All reads and writes are scoped by
// (session_id, user_id); expired sessions are removed by the sweeper via
// DeleteExpired rather than filtered on every read.
type SessionStore struct {
	db DBTX
}

// NewSessionStore creates a session store over the given connection source.
func NewSessionStore(db DBTX) *SessionStore {
	return &SessionStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *SessionStore) WithTx(tx pgx.Tx) *SessionStore {
	return &SessionStore{db: tx}
}

const sessionColumns = `id, user_id, business_id, status, parsed_data,
	validation_errors, validation_warnings, original_files, rollback_data,
	expires_at, created_at, updated_at`

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, sess *domain.ImportSession) error {
	parsed, errs, warns, rollback, err := marshalPayloads(sess)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO import_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID, sess.UserID, sess.BusinessID, sess.Status, parsed,
		errs, warns, sess.OriginalFiles, rollback,
		sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get fetches one session scoped to its owner.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM import_sessions
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanSession(row)
}

// List returns the caller's sessions, optionally filtered by business and
// status, newest first.
func (s *SessionStore) List(ctx context.Context, userID, businessID string, status domain.SessionStatus) ([]*domain.ImportSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM import_sessions WHERE user_id = $1`
	args := []interface{}{userID}

	if businessID != "" {
		args = append(args, businessID)
		query += fmt.Sprintf(" AND business_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ImportSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateBundle replaces the parsed data and validation results of a session
// that is still editable. Returns ErrSessionNotFound if the row is gone.
func (s *SessionStore) UpdateBundle(ctx context.Context, sess *domain.ImportSession) error {
	parsed, errs, warns, _, err := marshalPayloads(sess)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE import_sessions
		SET parsed_data = $3, validation_errors = $4, validation_warnings = $5,
		    status = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status IN ('draft', 'validated')`,
		sess.ID, sess.UserID, parsed, errs, warns, sess.Status,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Confirm conditionally moves a session from validated to confirmed and
// attaches the rollback log. The status predicate is the commit guard: two
// concurrent saves cannot both observe validated, so only one wins.
func (s *SessionStore) Confirm(ctx context.Context, id uuid.UUID, userID string, rollback []domain.RollbackOperation) (bool, error) {
	data, err := json.Marshal(rollback)
	if err != nil {
		return false, fmt.Errorf("marshal rollback log: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE import_sessions
		SET status = 'confirmed', rollback_data = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'validated'`,
		id, userID, data,
	)
	if err != nil {
		return false, fmt.Errorf("confirm session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetStatus conditionally transitions a session to the given status. The
// allowed-from list implements the state machine guard at the storage level.
func (s *SessionStore) SetStatus(ctx context.Context, id uuid.UUID, userID string, to domain.SessionStatus, from ...domain.SessionStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE import_sessions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = ANY($4)`,
		id, userID, to, statuses,
	)
	if err != nil {
		return false, fmt.Errorf("set session status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes one session. Returns the number of rows removed (0 or 1).
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM import_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes all of the caller's sessions.
func (s *SessionStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM import_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes every session past its expiry, regardless of status.
// This is garbage collection, not a business transition.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM import_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalPayloads(sess *domain.ImportSession) (parsed, errs, warns, rollback []byte, err error) {
	if parsed, err = json.Marshal(sess.ParsedData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal parsed data: %w", err)
	}
	if errs, err = json.Marshal(issuesOrEmpty(sess.ValidationErrors)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal validation errors: %w", err)
	}
	if warns, err = json.Marshal(issuesOrEmpty(sess.ValidationWarnings)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal validation warnings: %w", err)
	}
	ops := sess.RollbackData
	if ops == nil {
		ops = []domain.RollbackOperation{}
	}
	if rollback, err = json.Marshal(ops); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal rollback log: %w", err)
	}
	return parsed, errs, warns, rollback, nil
}

func issuesOrEmpty(issues []domain.ValidationIssue) []domain.ValidationIssue {
	if issues == nil {
		return []domain.ValidationIssue{}
	}
	return issues
}

func scanSession(row pgx.Row) (*domain.ImportSession, error) {
	var sess domain.ImportSession
	var parsed, errs, warns, rb []byte

	err := row.Scan(&sess.ID, &sess.UserID, &sess.BusinessID, &sess.Status,
		&parsed, &errs, &warns, &sess.OriginalFiles, &rb,
		&sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := json.Unmarshal(parsed, &sess.ParsedData); err != nil {
		return nil, fmt.Errorf("decode parsed data: %w", err)
	}
	if err := json.Unmarshal(errs, &sess.ValidationErrors); err != nil {
		return nil, fmt.Errorf("decode validation errors: %w", err)
	}
	if err := json.Unmarshal(warns, &sess.ValidationWarnings); err != nil {
		return nil, fmt.Errorf("decode validation warnings: %w", err)
	}
	if err := json.Unmarshal(rb, &sess.RollbackData); err != nil {
		return nil, fmt.Errorf("decode rollback log: %w", err)
	}

	return &sess, nil
}
