// internal/matching/scoring/engine_test.go
package scoring

import (
	"testing"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(nil, logger.NewTestLogger(t))
}

func TestEngine_Score_StrongProfile(t *testing.T) {
	// Strong borrower against a product whose published floor is well
	// below their standing.
	user := models.User{
		UserID:           "user-1",
		CreditScore:      750,
		MonthlyIncome:    5000,
		Age:              35,
		EmploymentStatus: models.EmploymentEmployed,
	}
	product := models.LoanProduct{
		ID:             "p-1",
		MinCreditScore: intPtr(650),
		MinIncome:      floatPtr(3000),
		InterestRate:   9.5,
	}

	engine := newTestEngine(t)
	rates := NewRateStats([]models.LoanProduct{product})

	got := engine.Score(user, product, rates)

	// credit (750-650)/(850-650) = 50, income (5000/3000)/2 = 83.33,
	// age 100, employment 100, rate 100 (single-product catalog)
	assert.InDelta(t, 50, got.Factors.Credit, 0.01)
	assert.InDelta(t, 83.33, got.Factors.Income, 0.01)
	assert.InDelta(t, 100, got.Factors.Age, 0.01)
	assert.InDelta(t, 100, got.Factors.Employment, 0.01)
	assert.InDelta(t, 100, got.Factors.Rate, 0.01)

	assert.InDelta(t, 80.83, got.Score, 0.01)
	assert.Greater(t, got.Score, 80.0)

	assert.NotEmpty(t, got.Reasons)
	assert.Equal(t, "Credit score well above minimum requirement", got.Reasons[0])
}

func TestEngine_Score_Deterministic(t *testing.T) {
	user := models.User{
		UserID:           "user-1",
		CreditScore:      720,
		MonthlyIncome:    4500,
		Age:              40,
		EmploymentStatus: models.EmploymentSelfEmployed,
	}
	product := models.LoanProduct{
		ID:             "p-1",
		MinCreditScore: intPtr(600),
		MaxCreditScore: intPtr(800),
		MinIncome:      floatPtr(2500),
		MinAge:         intPtr(25),
		MaxAge:         intPtr(60),
		InterestRate:   11.0,
	}
	rates := NewRateStats([]models.LoanProduct{
		{InterestRate: 8.0}, {InterestRate: 11.0}, {InterestRate: 14.0},
	})

	engine := newTestEngine(t)

	first := engine.Score(user, product, rates)
	second := engine.Score(user, product, rates)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Factors, second.Factors)
	assert.Equal(t, first.Reasons, second.Reasons)
}

func TestEngine_Score_BoundedOutput(t *testing.T) {
	engine := newTestEngine(t)
	rates := NewRateStats([]models.LoanProduct{{InterestRate: 10}})

	users := []models.User{
		{CreditScore: 300, MonthlyIncome: 0, Age: 18, EmploymentStatus: models.EmploymentUnemployed},
		{CreditScore: 850, MonthlyIncome: 100000, Age: 45, EmploymentStatus: models.EmploymentEmployed},
	}
	product := models.LoanProduct{
		MinCreditScore: intPtr(650),
		MinIncome:      floatPtr(3000),
		MinAge:         intPtr(21),
		MaxAge:         intPtr(65),
		InterestRate:   10,
	}

	for _, user := range users {
		got := engine.Score(user, product, rates)
		assert.GreaterOrEqual(t, got.Score, 0.0)
		assert.LessOrEqual(t, got.Score, 100.0)
	}
}

func TestEngine_CreditScore(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		credit   int
		product  models.LoanProduct
		expected float64
	}{
		{"no minimum published", 700, models.LoanProduct{}, 80},
		{"explicit bounds midpoint", 700, models.LoanProduct{MinCreditScore: intPtr(600), MaxCreditScore: intPtr(800)}, 50},
		{"headroom to 850 when max absent", 750, models.LoanProduct{MinCreditScore: intPtr(650)}, 50},
		{"at minimum", 650, models.LoanProduct{MinCreditScore: intPtr(650)}, 0},
		{"at top of scale", 850, models.LoanProduct{MinCreditScore: intPtr(650)}, 100},
		{"degenerate equal bounds", 700, models.LoanProduct{MinCreditScore: intPtr(700), MaxCreditScore: intPtr(700)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := models.User{CreditScore: tt.credit}
			assert.InDelta(t, tt.expected, engine.creditScore(user, tt.product), 0.01)
		})
	}
}

func TestEngine_IncomeScore(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		income   float64
		product  models.LoanProduct
		expected float64
	}{
		{"no minimum published", 4000, models.LoanProduct{}, 80},
		{"at minimum", 3000, models.LoanProduct{MinIncome: floatPtr(3000)}, 50},
		{"at saturation multiple", 6000, models.LoanProduct{MinIncome: floatPtr(3000)}, 100},
		{"beyond saturation stays capped", 30000, models.LoanProduct{MinIncome: floatPtr(3000)}, 100},
		{"zero minimum is degenerate", 4000, models.LoanProduct{MinIncome: floatPtr(0)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := models.User{MonthlyIncome: tt.income}
			assert.InDelta(t, tt.expected, engine.incomeScore(user, tt.product), 0.01)
		})
	}
}

func TestEngine_AgeScore(t *testing.T) {
	engine := newTestEngine(t)
	product := models.LoanProduct{MinAge: intPtr(21), MaxAge: intPtr(65)}

	tests := []struct {
		name     string
		age      int
		expected float64
	}{
		{"comfortably inside", 40, 100},
		{"at margin distance from floor", 26, 100},
		{"two years above floor", 23, 40},
		{"at floor", 21, 0},
		{"two years below ceiling", 63, 40},
		{"at ceiling", 65, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := models.User{Age: tt.age}
			assert.InDelta(t, tt.expected, engine.ageScore(user, product), 0.01)
		})
	}

	t.Run("no bounds published", func(t *testing.T) {
		assert.InDelta(t, 100, engine.ageScore(models.User{Age: 30}, models.LoanProduct{}), 0.01)
	})
}

func TestEngine_EmploymentScore(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		status   models.EmploymentStatus
		expected float64
	}{
		{models.EmploymentEmployed, 100},
		{models.EmploymentSelfEmployed, 100},
		{models.EmploymentRetired, 60},
		{models.EmploymentStudent, 40},
		{models.EmploymentUnemployed, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			user := models.User{EmploymentStatus: tt.status}
			assert.InDelta(t, tt.expected, engine.employmentScore(user, models.LoanProduct{}), 0.01)
		})
	}
}

func TestRateStats_Competitiveness(t *testing.T) {
	catalog := []models.LoanProduct{
		{InterestRate: 8.99},
		{InterestRate: 6.75},
		{InterestRate: 15.00},
		{InterestRate: 12.50},
	}
	stats := NewRateStats(catalog)

	assert.InDelta(t, 6.75, stats.Min, 0.001)
	assert.InDelta(t, 15.00, stats.Max, 0.001)

	assert.InDelta(t, 100, stats.Competitiveness(6.75), 0.01)
	assert.InDelta(t, 0, stats.Competitiveness(15.00), 0.01)
	assert.InDelta(t, 72.85, stats.Competitiveness(8.99), 0.01)
	assert.InDelta(t, 30.30, stats.Competitiveness(12.50), 0.01)
}

func TestRateStats_DegenerateCatalogs(t *testing.T) {
	t.Run("empty catalog is neutral", func(t *testing.T) {
		stats := NewRateStats(nil)
		assert.InDelta(t, 50, stats.Competitiveness(10), 0.01)
	})

	t.Run("uniform rates all score top", func(t *testing.T) {
		stats := NewRateStats([]models.LoanProduct{
			{InterestRate: 9.5}, {InterestRate: 9.5},
		})
		assert.InDelta(t, 100, stats.Competitiveness(9.5), 0.01)
	})

	t.Run("single product scores top", func(t *testing.T) {
		stats := NewRateStats([]models.LoanProduct{{InterestRate: 12}})
		assert.InDelta(t, 100, stats.Competitiveness(12), 0.01)
	})
}

func TestEngine_Reasons_OrderedByWeight(t *testing.T) {
	engine := newTestEngine(t)

	reasons := engine.reasons(FactorScores{
		Credit:     90,
		Income:     90,
		Age:        90,
		Employment: 90,
		Rate:       90,
	})

	assert.Equal(t, []string{
		"Credit score well above minimum requirement",
		"Income comfortably exceeds minimum requirement",
		"Age fits well within the eligible range",
		"Employment profile matches lender expectations",
		"Interest rate is competitive within the current catalog",
	}, reasons)
}

func TestEngine_Reasons_ThresholdInclusive(t *testing.T) {
	engine := newTestEngine(t)

	reasons := engine.reasons(FactorScores{
		Credit:     50, // exactly at default threshold
		Income:     49.99,
		Age:        0,
		Employment: 0,
		Rate:       0,
	})

	assert.Equal(t, []string{"Credit score well above minimum requirement"}, reasons)
}

func TestEngine_WeakProfile_FewReasons(t *testing.T) {
	user := models.User{
		UserID:           "user-weak",
		CreditScore:      655,
		MonthlyIncome:    2900,
		Age:              22,
		EmploymentStatus: models.EmploymentUnemployed,
	}
	product := models.LoanProduct{
		ID:             "p-1",
		MinCreditScore: intPtr(650),
		MinIncome:      floatPtr(3000),
		MinAge:         intPtr(21),
		MaxAge:         intPtr(65),
		InterestRate:   15,
	}
	rates := NewRateStats([]models.LoanProduct{
		{InterestRate: 7}, {InterestRate: 15},
	})

	engine := newTestEngine(t)
	got := engine.Score(user, product, rates)

	assert.Less(t, got.Score, 40.0)
	assert.Empty(t, got.Reasons)
}
