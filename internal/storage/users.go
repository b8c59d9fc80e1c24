// internal/storage/users.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"loan-matching-workers/internal/models"
)

// UserStore reads borrower records written by the ingestion pipeline.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// UserPage returns one page of users in a stable order so a batch visits
// every record exactly once even across multiple pages.
func (s *UserStore) UserPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, email, monthly_income, credit_score, employment_status, age, created_at
		FROM users
		ORDER BY created_at, user_id
		OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query users page: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Email, &u.MonthlyIncome, &u.CreditScore,
			&u.EmploymentStatus, &u.Age, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users page: %w", err)
	}

	return users, nil
}
