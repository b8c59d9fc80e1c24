// internal/matching/scoring/refiner.go
package scoring

import (
	"context"

	"loan-matching-workers/internal/models"
)

// Refiner is an optional secondary refinement over the deterministic
// score, e.g. an LLM-based adjustment. It returns a score delta and a
// single explanatory reason. The engine clamps the delta to the
// configured bound and degrades to the deterministic result on error,
// so pipeline output stays reproducible without the external service.
type Refiner interface {
	Refine(ctx context.Context, user models.User, candidate ScoredCandidate) (delta float64, reason string, err error)
}

// ApplyRefinement runs the refiner over a scored candidate and folds the
// bounded adjustment into it, appending exactly one reason. A nil
// refiner or a refiner error leaves the candidate unchanged.
func (e *Engine) ApplyRefinement(ctx context.Context, refiner Refiner, user models.User, candidate ScoredCandidate) ScoredCandidate {
	if refiner == nil {
		return candidate
	}

	delta, reason, err := refiner.Refine(ctx, user, candidate)
	if err != nil {
		e.logger.Warn("refinement failed, keeping deterministic score", map[string]interface{}{
			"userId":    user.UserID,
			"productId": candidate.Product.ID,
			"error":     err,
		})
		return candidate
	}

	bound := e.config.MaxRefinerDelta
	delta = clamp(delta, -bound, bound)

	refined := candidate
	refined.Score = clamp(candidate.Score+delta, 0, 100)
	if reason != "" {
		refined.Reasons = append(append([]string{}, candidate.Reasons...), reason)
	}
	return refined
}
