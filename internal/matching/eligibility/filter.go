// internal/matching/eligibility/filter.go
package eligibility

import (
	"loan-matching-workers/internal/models"
)

// EligibleProducts returns the subset of catalog for which no hard
// exclusion rule fires for the given user. It is a cheap pre-filter run
// before scoring, so the expensive stage only sees plausible pairs.
// Pure function: no side effects, no error paths (malformed records are
// rejected upstream by ingestion).
func EligibleProducts(user models.User, catalog []models.LoanProduct) []models.LoanProduct {
	eligible := make([]models.LoanProduct, 0, len(catalog))
	for _, product := range catalog {
		if Eligible(user, product) {
			eligible = append(eligible, product)
		}
	}
	return eligible
}

// Eligible applies the hard exclusion rules to a single pair. An absent
// bound on the product means the lender publishes no such requirement and
// the rule is skipped, never an automatic fail.
func Eligible(user models.User, product models.LoanProduct) bool {
	if product.MinCreditScore != nil && user.CreditScore < *product.MinCreditScore {
		return false
	}
	if product.MaxCreditScore != nil && user.CreditScore > *product.MaxCreditScore {
		return false
	}
	if product.MinAge != nil && user.Age < *product.MinAge {
		return false
	}
	if product.MaxAge != nil && user.Age > *product.MaxAge {
		return false
	}
	if product.MinIncome != nil && user.MonthlyIncome < *product.MinIncome {
		return false
	}
	if product.EmploymentRequired {
		switch user.EmploymentStatus {
		case models.EmploymentUnemployed, models.EmploymentStudent:
			return false
		}
	}
	return true
}
