// internal/matching/selector/selector.go
package selector

import (
	"context"
	"time"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/matching/scoring"
	"loan-matching-workers/internal/models"
)

// MatchStore persists match rows. UpsertMatch reports whether the row
// was newly created rather than refreshed in place.
type MatchStore interface {
	UpsertMatch(ctx context.Context, match models.Match) (created bool, err error)
}

// MatchIndexer mirrors persisted matches into a secondary search index.
// Indexing is best effort; failures never affect the source of truth.
type MatchIndexer interface {
	IndexMatch(ctx context.Context, match models.Match) error
}

// Selector decides which scored candidates become persisted matches.
// Candidates below the minimum score are dropped; survivors are
// upserted so re-runs refresh rows without ever deleting them.
type Selector struct {
	minScore float64
	store    MatchStore
	indexer  MatchIndexer
	logger   logger.Logger
}

func New(minScore float64, store MatchStore, indexer MatchIndexer, log logger.Logger) *Selector {
	return &Selector{
		minScore: minScore,
		store:    store,
		indexer:  indexer,
		logger:   log.WithFields(map[string]interface{}{"component": "match-selector"}),
	}
}

// Persist writes one user's surviving candidates and returns how many
// rows were created versus updated. The first store error aborts the
// user and is returned to the caller; the batch decides whether to
// continue with other users.
func (s *Selector) Persist(ctx context.Context, user models.User, candidates []scoring.ScoredCandidate) (created, updated int, err error) {
	now := time.Now().UTC()

	for _, candidate := range candidates {
		if candidate.Score < s.minScore {
			continue
		}

		match := models.Match{
			UserID:       user.UserID,
			ProductID:    candidate.Product.ID,
			MatchScore:   candidate.Score,
			MatchReasons: candidate.Reasons,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		wasCreated, upsertErr := s.store.UpsertMatch(ctx, match)
		if upsertErr != nil {
			return created, updated, upsertErr
		}
		if wasCreated {
			created++
		} else {
			updated++
		}

		if s.indexer != nil {
			if idxErr := s.indexer.IndexMatch(ctx, match); idxErr != nil {
				s.logger.Warn("match index write failed", map[string]interface{}{
					"userId":    match.UserID,
					"productId": match.ProductID,
					"error":     idxErr.Error(),
				})
			}
		}
	}

	return created, updated, nil
}
