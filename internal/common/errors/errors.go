// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBatchInputInvalid  ErrorCode = "BATCH_INPUT_INVALID"
	ErrCodeUserRecordInvalid  ErrorCode = "USER_RECORD_INVALID"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeCatalogEmpty       ErrorCode = "CATALOG_EMPTY"
	ErrCodeUserSourceFailed   ErrorCode = "USER_SOURCE_FAILED"

	ErrCodeMatchUpsertFailed       ErrorCode = "MATCH_UPSERT_FAILED"
	ErrCodeProcessingLogFailed     ErrorCode = "PROCESSING_LOG_WRITE_FAILED"
	ErrCodeMatchingBatchFailed     ErrorCode = "MATCHING_BATCH_FAILED"
	ErrCodeScoreRefinementFailed   ErrorCode = "SCORE_REFINEMENT_FAILED"
	ErrCodeNotificationSendFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeNotificationQueryFailed ErrorCode = "NOTIFICATION_QUERY_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ConvertToBPMNError maps a StandardError onto the workflow error contract.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		Retries:   GetRetryCount(err.Code),
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewBatchInputInvalidError creates a non-retryable trigger payload error.
func NewBatchInputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchInputInvalid,
		Message:   "Batch trigger payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserRecordInvalidError creates a non-retryable per-record error. The
// batch continues past the record.
func NewUserRecordInvalidError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserRecordInvalid,
		Message:   "User record failed validation at matching stage",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogUnavailableError creates a retryable catalog source error.
// This is fatal for the invoking batch.
func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Product catalog could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogEmptyError creates a non-retryable empty catalog error.
func NewCatalogEmptyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogEmpty,
		Message:   "No active loan products in catalog",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserSourceFailedError creates a retryable user source error.
func NewUserSourceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserSourceFailed,
		Message:   "User page source failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMatchUpsertFailedError creates a retryable persistence error,
// surfaced after the storage layer exhausts its own retries.
func NewMatchUpsertFailedError(userID, productID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatchUpsertFailed,
		Message:   "Match upsert failed",
		Details:   fmt.Sprintf("userId: %s, productId: %s, error: %s", userID, productID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProcessingLogFailedError creates a retryable audit-trail error.
func NewProcessingLogFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProcessingLogFailed,
		Message:   "Processing log write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable delivery error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Match notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationQueryFailedError creates a retryable query error.
func NewNotificationQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationQueryFailed,
		Message:   "Loading unnotified matches failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Retry Policy
// ==========================

var retryCounts = map[ErrorCode]int{
	ErrCodeCatalogUnavailable:      3,
	ErrCodeUserSourceFailed:        3,
	ErrCodeMatchUpsertFailed:       3,
	ErrCodeProcessingLogFailed:     3,
	ErrCodeNotificationSendFailed:  2,
	ErrCodeNotificationQueryFailed: 2,
}

// GetRetryCount returns how many workflow-level retries a code is worth.
// Non-retryable codes return 0 and are thrown as BPMN errors instead.
func GetRetryCount(code ErrorCode) int {
	return retryCounts[code]
}

// GetErrorCategory buckets codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeBatchInputInvalid, ErrCodeUserRecordInvalid:
		return "input"
	case ErrCodeMatchUpsertFailed, ErrCodeProcessingLogFailed:
		return "persistence"
	case ErrCodeCatalogUnavailable, ErrCodeCatalogEmpty, ErrCodeUserSourceFailed:
		return "fatal"
	case ErrCodeNotificationSendFailed, ErrCodeNotificationQueryFailed:
		return "delivery"
	default:
		return "internal"
	}
}
