// internal/storage/matches.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"

	"github.com/google/uuid"
)

const (
	upsertMaxAttempts = 3
	upsertBackoffBase = 100 * time.Millisecond
)

// MatchStore persists user_loan_matches rows. The table holds at most
// one row per (user_id, product_id); re-runs refresh score and reasons
// in place and never delete.
type MatchStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewMatchStore(db *sql.DB, log logger.Logger) *MatchStore {
	return &MatchStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "match-store"}),
	}
}

// UpsertMatch inserts or refreshes one match row and reports whether a
// new row was created. Transient failures are retried with a short
// backoff before the error is surfaced.
func (s *MatchStore) UpsertMatch(ctx context.Context, match models.Match) (bool, error) {
	reasons, err := json.Marshal(match.MatchReasons)
	if err != nil {
		return false, fmt.Errorf("marshal match reasons: %w", err)
	}

	id := match.ID
	if id == "" {
		id = uuid.NewString()
	}

	var lastErr error
	for attempt := 1; attempt <= upsertMaxAttempts; attempt++ {
		// xmax = 0 only holds for a freshly inserted row, which is how
		// we distinguish created from updated in a single round trip.
		var created bool
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO user_loan_matches (id, user_id, product_id, match_score, match_reasons, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, product_id) DO UPDATE SET
				match_score = EXCLUDED.match_score,
				match_reasons = EXCLUDED.match_reasons,
				updated_at = EXCLUDED.updated_at
			RETURNING (xmax = 0)`,
			id, match.UserID, match.ProductID, match.MatchScore, reasons,
			match.CreatedAt, match.UpdatedAt,
		).Scan(&created)
		if err == nil {
			return created, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < upsertMaxAttempts {
			s.logger.Warn("match upsert failed, retrying", map[string]interface{}{
				"userId":    match.UserID,
				"productId": match.ProductID,
				"attempt":   attempt,
				"error":     err.Error(),
			})
			time.Sleep(upsertBackoffBase * time.Duration(attempt))
		}
	}

	return false, fmt.Errorf("upsert match for user %s product %s: %w", match.UserID, match.ProductID, lastErr)
}

// MatchNotification is one pending notification row, joined with the
// recipient and product details needed to render the message.
type MatchNotification struct {
	MatchID     string
	UserID      string
	Email       string
	ProductName string
	Provider    string
	MatchScore  float64
}

// UnnotifiedMatches returns matches whose owners have not been told yet,
// oldest first.
func (s *MatchStore) UnnotifiedMatches(ctx context.Context, limit int) ([]MatchNotification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, u.email, p.product_name, p.provider, m.match_score
		FROM user_loan_matches m
		JOIN users u ON u.user_id = m.user_id
		JOIN loan_products p ON p.id = m.product_id
		WHERE m.notification_sent = false
		ORDER BY m.updated_at, m.id
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query unnotified matches: %w", err)
	}
	defer rows.Close()

	var pending []MatchNotification
	for rows.Next() {
		var n MatchNotification
		if err := rows.Scan(&n.MatchID, &n.UserID, &n.Email, &n.ProductName, &n.Provider, &n.MatchScore); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		pending = append(pending, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}

	return pending, nil
}

// MarkNotified records that the match owner has been notified.
func (s *MatchStore) MarkNotified(ctx context.Context, matchID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_loan_matches
		SET notification_sent = true, notification_sent_at = $2
		WHERE id = $1`,
		matchID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark match %s notified: %w", matchID, err)
	}
	return nil
}
