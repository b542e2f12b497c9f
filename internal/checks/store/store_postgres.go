package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kycgate/internal/checks/models"
	"kycgate/pkg/sentinel"
)

// PostgresStore persists verification checks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed check store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx so inserts can run inside
// or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertCheckQuery = `
	INSERT INTO checks (
		id, client_id, document_id, user_id, check_id,
		document_type, is_standard_screening_check, is_document_check, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func insertCheck(ctx context.Context, ex execer, check *models.Check) error {
	if check == nil {
		return fmt.Errorf("check is required")
	}
	_, err := ex.ExecContext(ctx, insertCheckQuery,
		check.ID,
		check.ClientID,
		nullString(check.DocumentID),
		check.UserID,
		check.CheckID,
		check.DocumentType,
		check.IsStandardScreeningCheck,
		check.IsDocumentCheck,
		check.Status,
	)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, check *models.Check) error {
	return insertCheck(ctx, s.db, check)
}

// RecordPair writes both entries in a single transaction so a mid-flight
// failure never leaves a half-recorded submission.
func (s *PostgresStore) RecordPair(ctx context.Context, first, second *models.Check) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record pair: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := insertCheck(ctx, tx, first); err != nil {
		return err
	}
	if err := insertCheck(ctx, tx, second); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record pair: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, checkID string, status models.Status) error {
	query := `
		UPDATE checks
		SET status = $2, updated_at = NOW()
		WHERE check_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, checkID, status)
	if err != nil {
		return fmt.Errorf("update check status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update check status rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("check %s not found: %w", checkID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByCheckID(ctx context.Context, checkID string) (*models.Check, error) {
	query := `
		SELECT id, client_id, document_id, user_id, check_id,
			document_type, is_standard_screening_check, is_document_check,
			status, created_at, updated_at
		FROM checks
		WHERE check_id = $1
	`
	row := s.db.QueryRowContext(ctx, query, checkID)
	check, err := scanCheck(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check %s not found: %w", checkID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find check: %w", err)
	}
	return check, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Check, error) {
	query := `
		SELECT id, client_id, document_id, user_id, check_id,
			document_type, is_standard_screening_check, is_document_check,
			status, created_at, updated_at
		FROM checks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}
	return checks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheck(row rowScanner) (*models.Check, error) {
	var check models.Check
	var documentID sql.NullString
	err := row.Scan(
		&check.ID,
		&check.ClientID,
		&documentID,
		&check.UserID,
		&check.CheckID,
		&check.DocumentType,
		&check.IsStandardScreeningCheck,
		&check.IsDocumentCheck,
		&check.Status,
		&check.CreatedAt,
		&check.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	check.DocumentID = documentID.String
	return &check, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
