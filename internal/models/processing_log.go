// internal/models/processing_log.go
package models

import "time"

// BatchStatus is the batch state machine: started -> in_progress ->
// completed | failed. A batch killed mid-run leaves its last entry at
// in_progress, which monitoring treats as a detectable failure signature.
type BatchStatus string

const (
	BatchStarted    BatchStatus = "started"
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// OperationMatching names the pipeline in processing_log rows, alongside
// entries written by the ingestion and discovery collaborators.
const OperationMatching = "matching"

// ProcessingLogEntry is one row of the append-only audit trail. The
// coordinator inserts a fresh row per status transition; rows are never
// updated, so a batch's history is reconstructible by timestamp order.
type ProcessingLogEntry struct {
	BatchID          string       `json:"batchId"`
	Operation        string       `json:"operation"`
	Status           BatchStatus  `json:"status"`
	RecordsProcessed int          `json:"recordsProcessed"`
	Errors           []BatchError `json:"errors,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}
