// internal/models/product.go
package models

import "time"

// LoanProduct is a third-party loan offer maintained by the discovery
// collaborator. Eligibility bounds are pointers: a nil bound means the
// lender publishes no such requirement and the corresponding rule is
// skipped during filtering.
type LoanProduct struct {
	ID                 string                 `json:"id"`
	ProductName        string                 `json:"productName"`
	Provider           string                 `json:"provider"`
	InterestRate       float64                `json:"interestRate"`
	MinCreditScore     *int                   `json:"minCreditScore,omitempty"`
	MaxCreditScore     *int                   `json:"maxCreditScore,omitempty"`
	MinAge             *int                   `json:"minAge,omitempty"`
	MaxAge             *int                   `json:"maxAge,omitempty"`
	MinIncome          *float64               `json:"minIncome,omitempty"`
	EmploymentRequired bool                   `json:"employmentRequired"`
	MinLoanAmount      *float64               `json:"minLoanAmount,omitempty"`
	MaxLoanAmount      *float64               `json:"maxLoanAmount,omitempty"`
	TenureMonths       int                    `json:"tenureMonths"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
	IsActive           bool                   `json:"isActive"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}
