// internal/models/match.go
package models

import "time"

// Match is a persisted, scored association between one user and one
// product. At most one row exists per (user, product) pair; re-runs
// overwrite score and reasons in place and never delete.
type Match struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ProductID    string    `json:"productId"`
	MatchScore   float64   `json:"matchScore"`
	MatchReasons []string  `json:"matchReasons"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BatchError is one recoverable failure inside a batch run. The batch
// continues past it; the summary carries the full list.
type BatchError struct {
	UserID  string `json:"userId,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// BatchSummary is the typed result contract returned to the
// orchestration collaborator after a batch run.
type BatchSummary struct {
	BatchID        string       `json:"batchId"`
	Status         BatchStatus  `json:"status"`
	UsersProcessed int          `json:"usersProcessed"`
	PairsEvaluated int          `json:"pairsEvaluated"`
	MatchesCreated int          `json:"matchesCreated"`
	MatchesUpdated int          `json:"matchesUpdated"`
	Errors         []BatchError `json:"errors"`
}
