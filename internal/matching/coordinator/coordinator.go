// internal/matching/coordinator/coordinator.go
package coordinator

import (
	"context"
	"time"

	"loan-matching-workers/internal/common/errors"
	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/matching/eligibility"
	"loan-matching-workers/internal/matching/scoring"
	"loan-matching-workers/internal/models"

	"github.com/google/uuid"
)

// UserSource pages through borrower records in a stable order.
type UserSource interface {
	UserPage(ctx context.Context, offset, limit int) ([]models.User, error)
}

// CatalogSource loads the active product catalog. The coordinator calls
// it exactly once per batch and freezes the snapshot for the whole run.
type CatalogSource interface {
	ActiveProducts(ctx context.Context) ([]models.LoanProduct, error)
}

// LogStore appends rows to the processing audit trail.
type LogStore interface {
	Append(ctx context.Context, entry models.ProcessingLogEntry) error
}

// MatchPersister writes one user's surviving candidates.
type MatchPersister interface {
	Persist(ctx context.Context, user models.User, candidates []scoring.ScoredCandidate) (created, updated int, err error)
}

// Coordinator drives one full matching batch: freeze the catalog, page
// through users, filter, score, optionally refine, persist, and record
// every state transition in the processing log.
type Coordinator struct {
	users     UserSource
	catalog   CatalogSource
	logStore  LogStore
	engine    *scoring.Engine
	refiner   scoring.Refiner
	persister MatchPersister
	pageSize  int
	logger    logger.Logger
}

type Options struct {
	Users     UserSource
	Catalog   CatalogSource
	LogStore  LogStore
	Engine    *scoring.Engine
	Refiner   scoring.Refiner
	Persister MatchPersister
	PageSize  int
	Logger    logger.Logger
}

func New(opts Options) *Coordinator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Coordinator{
		users:     opts.Users,
		catalog:   opts.Catalog,
		logStore:  opts.LogStore,
		engine:    opts.Engine,
		refiner:   opts.Refiner,
		persister: opts.Persister,
		pageSize:  pageSize,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "batch-coordinator"}),
	}
}

// Run executes one batch. Per-user failures are recorded in the summary
// and the batch continues; a failure before any user is processed marks
// the batch failed with no partial work. The returned summary is
// populated even when err is non-nil.
func (c *Coordinator) Run(ctx context.Context) (*models.BatchSummary, error) {
	batchID := uuid.NewString()
	summary := &models.BatchSummary{
		BatchID: batchID,
		Status:  models.BatchStarted,
	}

	log := c.logger.WithFields(map[string]interface{}{"batchId": batchID})
	log.Info("matching batch starting", nil)

	if err := c.appendLog(ctx, summary); err != nil {
		summary.Status = models.BatchFailed
		return summary, errors.NewProcessingLogFailedError(err)
	}

	catalog, err := c.catalog.ActiveProducts(ctx)
	if err != nil {
		return c.fail(ctx, summary, errors.NewCatalogUnavailableError(err))
	}
	if len(catalog) == 0 {
		return c.fail(ctx, summary, errors.NewCatalogEmptyError())
	}

	// The rate distribution is computed once so every user in the run
	// is scored against the same snapshot.
	rates := scoring.NewRateStats(catalog)

	summary.Status = models.BatchInProgress
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return c.fail(ctx, summary, err)
		}

		users, err := c.users.UserPage(ctx, offset, c.pageSize)
		if err != nil {
			if summary.UsersProcessed == 0 {
				return c.fail(ctx, summary, errors.NewUserSourceFailedError(err))
			}
			summary.Errors = append(summary.Errors, models.BatchError{
				Stage:   "paging",
				Message: err.Error(),
			})
			break
		}
		if len(users) == 0 {
			break
		}

		for _, user := range users {
			c.processUser(ctx, user, catalog, rates, summary)
		}

		if err := c.appendLog(ctx, summary); err != nil {
			log.Warn("processing log write failed mid-batch", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if len(users) < c.pageSize {
			break
		}
		offset += c.pageSize
	}

	summary.Status = models.BatchCompleted
	if err := c.appendLog(ctx, summary); err != nil {
		summary.Status = models.BatchFailed
		return summary, errors.NewProcessingLogFailedError(err)
	}

	log.Info("matching batch completed", map[string]interface{}{
		"usersProcessed": summary.UsersProcessed,
		"pairsEvaluated": summary.PairsEvaluated,
		"matchesCreated": summary.MatchesCreated,
		"matchesUpdated": summary.MatchesUpdated,
		"errors":         len(summary.Errors),
	})
	return summary, nil
}

func (c *Coordinator) processUser(ctx context.Context, user models.User, catalog []models.LoanProduct, rates scoring.RateStats, summary *models.BatchSummary) {
	if err := user.Validate(); err != nil {
		summary.Errors = append(summary.Errors, models.BatchError{
			UserID:  user.UserID,
			Stage:   "validation",
			Message: err.Error(),
		})
		return
	}

	eligible := eligibility.EligibleProducts(user, catalog)
	summary.PairsEvaluated += len(eligible)

	candidates := make([]scoring.ScoredCandidate, 0, len(eligible))
	for _, product := range eligible {
		candidate := c.engine.Score(user, product, rates)
		if c.refiner != nil {
			candidate = c.engine.ApplyRefinement(ctx, c.refiner, user, candidate)
		}
		candidates = append(candidates, candidate)
	}

	created, updated, err := c.persister.Persist(ctx, user, candidates)
	summary.MatchesCreated += created
	summary.MatchesUpdated += updated
	if err != nil {
		summary.Errors = append(summary.Errors, models.BatchError{
			UserID:  user.UserID,
			Stage:   "persistence",
			Message: err.Error(),
		})
		return
	}

	summary.UsersProcessed++
}

// fail records the terminal failed transition and returns the cause.
// Nothing written so far is rolled back; matches already upserted stay.
func (c *Coordinator) fail(ctx context.Context, summary *models.BatchSummary, cause error) (*models.BatchSummary, error) {
	summary.Status = models.BatchFailed
	summary.Errors = append(summary.Errors, models.BatchError{
		Stage:   "batch",
		Message: cause.Error(),
	})
	if err := c.appendLog(ctx, summary); err != nil {
		c.logger.Error("failed to record batch failure", map[string]interface{}{
			"batchId": summary.BatchID,
			"error":   err.Error(),
		})
	}
	return summary, cause
}

func (c *Coordinator) appendLog(ctx context.Context, summary *models.BatchSummary) error {
	return c.logStore.Append(ctx, models.ProcessingLogEntry{
		BatchID:          summary.BatchID,
		Operation:        models.OperationMatching,
		Status:           summary.Status,
		RecordsProcessed: summary.UsersProcessed,
		Errors:           summary.Errors,
		CreatedAt:        time.Now().UTC(),
	})
}
