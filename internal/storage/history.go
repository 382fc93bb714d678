package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/service"
)

// RecordPrediction appends one prediction to the history.
func (s *SQLiteStorage) RecordPrediction(ctx context.Context, rec *service.PredictionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePredictionRecord(rec); err != nil {
		return err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, transaction_id, description, category, source, confidence, auto_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TransactionID, rec.Description, rec.Category,
		string(rec.Source), rec.Confidence, rec.AutoApproved, createdAt)
	if err != nil {
		return fmt.Errorf("failed to record prediction: %w", err)
	}
	return nil
}

// RecentPredictions returns the most recent predictions, newest first.
func (s *SQLiteStorage) RecentPredictions(ctx context.Context, limit int) ([]service.PredictionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, description, category, source, confidence, auto_approved, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []service.PredictionRecord
	for rows.Next() {
		var rec service.PredictionRecord
		var source string
		if err := rows.Scan(&rec.ID, &rec.TransactionID, &rec.Description, &rec.Category,
			&source, &rec.Confidence, &rec.AutoApproved, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		rec.Source = model.Source(source)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return records, nil
}

// MarkTrained records that a transaction has fed the learning loop.
// Idempotent; marking the same transaction twice is a no-op.
func (s *SQLiteStorage) MarkTrained(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trained_transactions (transaction_id) VALUES (?)
		ON CONFLICT(transaction_id) DO NOTHING`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark transaction as trained: %w", err)
	}
	return nil
}

// IsTrained reports whether a transaction has already fed the learning
// loop, so bulk training can skip it.
func (s *SQLiteStorage) IsTrained(ctx context.Context, transactionID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM trained_transactions WHERE transaction_id = ?`, transactionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check trained transaction: %w", err)
	}
	return true, nil
}
