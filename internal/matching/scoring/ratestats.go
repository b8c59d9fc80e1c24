// internal/matching/scoring/ratestats.go
package scoring

import "loan-matching-workers/internal/models"

// RateStats is the observed interest-rate distribution of one batch's
// frozen catalog snapshot. It is computed once per batch invocation so
// rate competitiveness stays comparable across every user in the run.
type RateStats struct {
	Min float64
	Max float64
	n   int
}

// NewRateStats derives the distribution from the catalog snapshot.
func NewRateStats(catalog []models.LoanProduct) RateStats {
	stats := RateStats{}
	for _, p := range catalog {
		if stats.n == 0 {
			stats.Min = p.InterestRate
			stats.Max = p.InterestRate
		} else {
			if p.InterestRate < stats.Min {
				stats.Min = p.InterestRate
			}
			if p.InterestRate > stats.Max {
				stats.Max = p.InterestRate
			}
		}
		stats.n++
	}
	return stats
}

// Competitiveness min-max normalizes a product rate against the batch
// distribution: the cheapest rate in the catalog scores 100, the most
// expensive 0. A uniform or single-product catalog makes every product
// the cheapest on offer, so it scores 100.
func (s RateStats) Competitiveness(rate float64) float64 {
	if s.n == 0 {
		return neutralScore
	}
	spread := s.Max - s.Min
	if spread <= 0 {
		return 100
	}
	return clamp((s.Max-rate)/spread*100, 0, 100)
}
