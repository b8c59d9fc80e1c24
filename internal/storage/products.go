// internal/storage/products.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"loan-matching-workers/internal/common/database"
	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"
)

const catalogCacheKey = "catalog:active"

// ProductStore reads the loan product catalog maintained by the
// discovery pipeline. Reads go through a short-lived Redis cache so
// frequent batch triggers don't hammer the catalog table; the cache is
// strictly an optimization and every failure falls through to Postgres.
type ProductStore struct {
	db     *sql.DB
	cache  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewProductStore(db *sql.DB, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *ProductStore {
	return &ProductStore{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "product-store"}),
	}
}

// ActiveProducts returns the current active catalog.
func (s *ProductStore) ActiveProducts(ctx context.Context) ([]models.LoanProduct, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, catalogCacheKey); err == nil {
			var products []models.LoanProduct
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				return products, nil
			}
			s.logger.Warn("discarding unparseable catalog cache entry", nil)
		}
	}

	products, err := s.queryActiveProducts(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, payload, s.ttl); err != nil {
				s.logger.Warn("catalog cache write failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return products, nil
}

// InvalidateCatalogCache drops the cached catalog, forcing the next
// batch to read fresh rows.
func (s *ProductStore) InvalidateCatalogCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, catalogCacheKey)
}

func (s *ProductStore) queryActiveProducts(ctx context.Context) ([]models.LoanProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_name, provider, interest_rate,
		       min_credit_score, max_credit_score, min_age, max_age, min_income,
		       employment_required, min_loan_amount, max_loan_amount,
		       tenure_months, metadata, is_active, updated_at
		FROM loan_products
		WHERE is_active = true
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active products: %w", err)
	}
	defer rows.Close()

	var products []models.LoanProduct
	for rows.Next() {
		var p models.LoanProduct
		var metadata []byte
		if err := rows.Scan(&p.ID, &p.ProductName, &p.Provider, &p.InterestRate,
			&p.MinCreditScore, &p.MaxCreditScore, &p.MinAge, &p.MaxAge, &p.MinIncome,
			&p.EmploymentRequired, &p.MinLoanAmount, &p.MaxLoanAmount,
			&p.TenureMonths, &metadata, &p.IsActive, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
				s.logger.Warn("skipping unparseable product metadata", map[string]interface{}{
					"productId": p.ID,
				})
			}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}
