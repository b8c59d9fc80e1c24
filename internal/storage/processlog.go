// internal/storage/processlog.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"loan-matching-workers/internal/models"
)

// ProcessingLogStore appends rows to the shared processing_log audit
// table. Rows are insert-only; a batch's history is its ordered rows.
type ProcessingLogStore struct {
	db *sql.DB
}

func NewProcessingLogStore(db *sql.DB) *ProcessingLogStore {
	return &ProcessingLogStore{db: db}
}

// Append writes one status transition.
func (s *ProcessingLogStore) Append(ctx context.Context, entry models.ProcessingLogEntry) error {
	var errsJSON []byte
	if len(entry.Errors) > 0 {
		var err error
		errsJSON, err = json.Marshal(entry.Errors)
		if err != nil {
			return fmt.Errorf("marshal batch errors: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_log (batch_id, operation, status, records_processed, errors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.BatchID, entry.Operation, string(entry.Status),
		entry.RecordsProcessed, errsJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append processing log entry: %w", err)
	}
	return nil
}

// BatchHistory returns the ordered transitions of one batch.
func (s *ProcessingLogStore) BatchHistory(ctx context.Context, batchID string) ([]models.ProcessingLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, operation, status, records_processed, errors, created_at
		FROM processing_log
		WHERE batch_id = $1
		ORDER BY created_at, id`,
		batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch history: %w", err)
	}
	defer rows.Close()

	var entries []models.ProcessingLogEntry
	for rows.Next() {
		var entry models.ProcessingLogEntry
		var errsJSON []byte
		if err := rows.Scan(&entry.BatchID, &entry.Operation, &entry.Status,
			&entry.RecordsProcessed, &errsJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch history row: %w", err)
		}
		if len(errsJSON) > 0 {
			if err := json.Unmarshal(errsJSON, &entry.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal batch errors: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch history: %w", err)
	}

	return entries, nil
}
