// internal/matching/scoring/engine.go
package scoring

import (
	"math"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"
)

// Factor weights are fixed by policy and must sum to 1.0.
const (
	weightCredit     = 0.30
	weightIncome     = 0.25
	weightAge        = 0.15
	weightEmployment = 0.15
	weightRate       = 0.15
)

// creditHeadroom is the scaling range used when a product publishes only
// a minimum credit score: the factor reaches 100 at the top of the FICO
// scale.
const creditHeadroom = 850

// neutralScore is returned for a factor whose inputs are degenerate
// (e.g. equal min/max bounds) instead of propagating a division by zero.
const neutralScore = 50.0

// Config tunes the non-policy knobs of the engine. Zero values are
// replaced with defaults by NewEngine.
type Config struct {
	// IncomeCapMultiple is the multiple of the product's minimum income
	// at which the income factor saturates at 100.
	IncomeCapMultiple float64
	// AgeEdgeMarginYears is the distance from a product age bound inside
	// which the age factor decays linearly toward 0.
	AgeEdgeMarginYears int
	// StrongFactorThreshold is the minimum factor score (0-100) that
	// produces a match reason.
	StrongFactorThreshold float64
	// MaxRefinerDelta bounds how far an external refinement pass may move
	// the deterministic score, in either direction.
	MaxRefinerDelta float64
}

func (c *Config) applyDefaults() {
	if c.IncomeCapMultiple <= 1 {
		c.IncomeCapMultiple = 2.0
	}
	if c.AgeEdgeMarginYears <= 0 {
		c.AgeEdgeMarginYears = 5
	}
	if c.StrongFactorThreshold <= 0 {
		c.StrongFactorThreshold = 50.0
	}
	if c.MaxRefinerDelta <= 0 {
		c.MaxRefinerDelta = 5.0
	}
}

// FactorScores holds the per-dimension scores before weighting, each in
// [0, 100].
type FactorScores struct {
	Credit     float64 `json:"credit"`
	Income     float64 `json:"income"`
	Age        float64 `json:"age"`
	Employment float64 `json:"employment"`
	Rate       float64 `json:"rate"`
}

// ScoredCandidate is a surviving (user, product) pair with its composite
// score and explanation. Not persisted unless the selector keeps it.
type ScoredCandidate struct {
	Product models.LoanProduct `json:"product"`
	Score   float64            `json:"score"`
	Reasons []string           `json:"reasons"`
	Factors FactorScores       `json:"factors"`
}

// Engine computes the weighted multi-factor compatibility score for
// filtered pairs. It is deterministic: fixed user, product and rate
// stats always produce the identical score and reason ordering.
type Engine struct {
	config Config
	logger logger.Logger
}

func NewEngine(config *Config, log logger.Logger) *Engine {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()
	return &Engine{
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "scoring-engine"}),
	}
}

// Score evaluates one pair against the frozen catalog rate distribution
// of the current batch.
func (e *Engine) Score(user models.User, product models.LoanProduct, rates RateStats) ScoredCandidate {
	factors := FactorScores{
		Credit:     e.creditScore(user, product),
		Income:     e.incomeScore(user, product),
		Age:        e.ageScore(user, product),
		Employment: e.employmentScore(user, product),
		Rate:       rates.Competitiveness(product.InterestRate),
	}

	total := factors.Credit*weightCredit +
		factors.Income*weightIncome +
		factors.Age*weightAge +
		factors.Employment*weightEmployment +
		factors.Rate*weightRate

	total = math.Round(clamp(total, 0, 100)*100) / 100

	return ScoredCandidate{
		Product: product,
		Score:   total,
		Reasons: e.reasons(factors),
		Factors: factors,
	}
}

// creditScore scales the user's position between the product's credit
// bounds; with only a minimum published it scales against the fixed
// 850-point headroom. Degenerate bounds return the neutral score.
func (e *Engine) creditScore(user models.User, product models.LoanProduct) float64 {
	if product.MinCreditScore == nil {
		return 80
	}
	min := *product.MinCreditScore
	max := creditHeadroom
	if product.MaxCreditScore != nil {
		max = *product.MaxCreditScore
	}
	if max <= min {
		return neutralScore
	}
	return clamp(float64(user.CreditScore-min)/float64(max-min)*100, 0, 100)
}

// incomeScore saturates at 100 once income exceeds the product minimum
// by the configured multiple.
func (e *Engine) incomeScore(user models.User, product models.LoanProduct) float64 {
	if product.MinIncome == nil {
		return 80
	}
	min := *product.MinIncome
	if min <= 0 {
		return neutralScore
	}
	ratio := user.MonthlyIncome / min
	return clamp(ratio/e.config.IncomeCapMultiple*100, 0, 100)
}

// ageScore is 100 with margin from both edges and decays linearly inside
// the edge margin. Out of range scores 0, though the filter should have
// removed such pairs already.
func (e *Engine) ageScore(user models.User, product models.LoanProduct) float64 {
	if product.MinAge == nil && product.MaxAge == nil {
		return 100
	}
	distance := math.MaxFloat64
	if product.MinAge != nil {
		if user.Age < *product.MinAge {
			return 0
		}
		distance = math.Min(distance, float64(user.Age-*product.MinAge))
	}
	if product.MaxAge != nil {
		if user.Age > *product.MaxAge {
			return 0
		}
		distance = math.Min(distance, float64(*product.MaxAge-user.Age))
	}
	margin := float64(e.config.AgeEdgeMarginYears)
	if distance >= margin {
		return 100
	}
	return clamp(distance/margin*100, 0, 100)
}

func (e *Engine) employmentScore(user models.User, product models.LoanProduct) float64 {
	switch user.EmploymentStatus {
	case models.EmploymentEmployed, models.EmploymentSelfEmployed:
		return 100
	case models.EmploymentRetired:
		return 60
	case models.EmploymentStudent:
		return 40
	case models.EmploymentUnemployed:
		return 20
	}
	return neutralScore
}

// reasons emits a templated string per factor at or above the strong
// threshold, ordered by descending factor weight (declaration order
// breaks ties), so the most impactful dimension is reported first.
func (e *Engine) reasons(factors FactorScores) []string {
	type factorReason struct {
		score float64
		text  string
	}
	ordered := []factorReason{
		{factors.Credit, "Credit score well above minimum requirement"},
		{factors.Income, "Income comfortably exceeds minimum requirement"},
		{factors.Age, "Age fits well within the eligible range"},
		{factors.Employment, "Employment profile matches lender expectations"},
		{factors.Rate, "Interest rate is competitive within the current catalog"},
	}

	var reasons []string
	for _, fr := range ordered {
		if fr.score >= e.config.StrongFactorThreshold {
			reasons = append(reasons, fr.text)
		}
	}
	return reasons
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
