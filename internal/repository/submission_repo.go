// Package repository persists submission history to SQLite.
package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"go.uber.org/zap"
)

// SubmissionRepository handles submission history database operations
type SubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts one submission record
func (r *SubmissionRepository) Create(tx *sql.Tx, record *entity.SubmissionRecord) error {
	query := `
		INSERT INTO submissions (
			session_id, owner_email, refund_id, title, amount, currency,
			concept, submitted_date, exchange_rate, file_name, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []any{
		record.SessionID,
		record.OwnerEmail,
		record.RefundID,
		record.Title,
		record.Amount,
		record.Currency,
		record.Concept,
		record.SubmittedDate,
		record.ExchangeRate,
		record.FileName,
		record.Status,
		record.ErrorMessage,
	}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create submission record", zap.Error(err))
		return fmt.Errorf("failed to create submission record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByOwner retrieves the most recent submission records for one owner
func (r *SubmissionRepository) ListByOwner(ownerEmail string, limit int) ([]*entity.SubmissionRecord, error) {
	query := `
		SELECT id, session_id, owner_email, refund_id, title, amount, currency,
			concept, submitted_date, exchange_rate, file_name, status,
			error_message, created_at
		FROM submissions
		WHERE owner_email = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, ownerEmail, limit)
	if err != nil {
		r.logger.Error("Failed to list submissions by owner", zap.String("owner", ownerEmail), zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

// ListBySession retrieves all submission records for one wizard session
func (r *SubmissionRepository) ListBySession(sessionID string) ([]*entity.SubmissionRecord, error) {
	query := `
		SELECT id, session_id, owner_email, refund_id, title, amount, currency,
			concept, submitted_date, exchange_rate, file_name, status,
			error_message, created_at
		FROM submissions
		WHERE session_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		r.logger.Error("Failed to list submissions by session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func scanSubmissions(rows *sql.Rows) ([]*entity.SubmissionRecord, error) {
	var records []*entity.SubmissionRecord
	for rows.Next() {
		var record entity.SubmissionRecord
		err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.OwnerEmail,
			&record.RefundID,
			&record.Title,
			&record.Amount,
			&record.Currency,
			&record.Concept,
			&record.SubmittedDate,
			&record.ExchangeRate,
			&record.FileName,
			&record.Status,
			&record.ErrorMessage,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
