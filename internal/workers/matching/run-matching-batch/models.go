// internal/workers/matching/run-matching-batch/models.go
package runmatchingbatch

import "loan-matching-workers/internal/models"

type Input struct {
	TriggeredBy string `json:"triggeredBy,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type Output struct {
	BatchID        string             `json:"batchId"`
	BatchStatus    models.BatchStatus `json:"batchStatus"`
	UsersProcessed int                `json:"usersProcessed"`
	PairsEvaluated int                `json:"pairsEvaluated"`
	MatchesCreated int                `json:"matchesCreated"`
	MatchesUpdated int                `json:"matchesUpdated"`
	ErrorCount     int                `json:"errorCount"`
}
