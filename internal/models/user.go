// internal/models/user.go
package models

import (
	"fmt"
	"time"
)

// EmploymentStatus is the closed set of employment states accepted at ingestion.
type EmploymentStatus string

const (
	EmploymentEmployed     EmploymentStatus = "employed"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
	EmploymentSelfEmployed EmploymentStatus = "self-employed"
	EmploymentStudent      EmploymentStatus = "student"
	EmploymentRetired      EmploymentStatus = "retired"
)

// User is a borrower record produced by the ingestion collaborator.
// The matching pipeline never mutates it.
type User struct {
	UserID           string           `json:"userId"`
	Email            string           `json:"email"`
	MonthlyIncome    float64          `json:"monthlyIncome"`
	CreditScore      int              `json:"creditScore"`
	EmploymentStatus EmploymentStatus `json:"employmentStatus"`
	Age              int              `json:"age"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Validate checks the field ranges ingestion is supposed to guarantee.
// A record failing here is skipped and reported, never scored.
func (u *User) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("user id is empty")
	}
	if u.CreditScore < 300 || u.CreditScore > 850 {
		return fmt.Errorf("credit score %d outside [300, 850]", u.CreditScore)
	}
	if u.Age < 18 || u.Age > 100 {
		return fmt.Errorf("age %d outside [18, 100]", u.Age)
	}
	if u.MonthlyIncome < 0 {
		return fmt.Errorf("monthly income %.2f is negative", u.MonthlyIncome)
	}
	switch u.EmploymentStatus {
	case EmploymentEmployed, EmploymentUnemployed, EmploymentSelfEmployed,
		EmploymentStudent, EmploymentRetired:
	default:
		return fmt.Errorf("unknown employment status %q", u.EmploymentStatus)
	}
	return nil
}
