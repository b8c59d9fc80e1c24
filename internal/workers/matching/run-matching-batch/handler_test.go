// internal/workers/matching/run-matching-batch/handler_test.go
package runmatchingbatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	summary *models.BatchSummary
	err     error
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context) (*models.BatchSummary, error) {
	f.calls++
	return f.summary, f.err
}

func newTestHandler(t *testing.T, runner BatchRunner) *Handler {
	return NewHandler(&Config{Timeout: time.Minute}, runner, nil, logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute_MapsSummaryToOutput(t *testing.T) {
	runner := &fakeRunner{summary: &models.BatchSummary{
		BatchID:        "batch-1",
		Status:         models.BatchCompleted,
		UsersProcessed: 150,
		PairsEvaluated: 900,
		MatchesCreated: 40,
		MatchesUpdated: 85,
		Errors: []models.BatchError{
			{UserID: "u-1", Stage: "validation", Message: "age 140 outside [18, 100]"},
			{UserID: "u-2", Stage: "persistence", Message: "upsert failed"},
		},
	}}

	handler := newTestHandler(t, runner)
	output, err := handler.Execute(context.Background(), &Input{TriggeredBy: "scheduler"})

	assert.NoError(t, err)
	assert.Equal(t, "batch-1", output.BatchID)
	assert.Equal(t, models.BatchCompleted, output.BatchStatus)
	assert.Equal(t, 150, output.UsersProcessed)
	assert.Equal(t, 900, output.PairsEvaluated)
	assert.Equal(t, 40, output.MatchesCreated)
	assert.Equal(t, 85, output.MatchesUpdated)
	assert.Equal(t, 2, output.ErrorCount)
	assert.Equal(t, 1, runner.calls)
}

func TestExecute_RunnerErrorPropagates(t *testing.T) {
	runner := &fakeRunner{err: errors.New("catalog unavailable")}

	handler := newTestHandler(t, runner)
	output, err := handler.Execute(context.Background(), &Input{})

	assert.Error(t, err)
	assert.Nil(t, output)
}

// ==========================
// Input parsing
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *Input
		wantErr bool
	}{
		{
			name:    "empty variables use defaults",
			payload: "",
			want:    &Input{},
		},
		{
			name:    "full payload",
			payload: `{"triggeredBy": "scheduler", "reason": "nightly run"}`,
			want:    &Input{TriggeredBy: "scheduler", Reason: "nightly run"},
		},
		{
			name:    "extra fields are tolerated",
			payload: `{"triggeredBy": "manual", "processInstanceKey": 12345}`,
			want:    &Input{TriggeredBy: "manual"},
		},
		{
			name:    "wrong type rejected",
			payload: `{"triggeredBy": 42}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON rejected",
			payload: `{"triggeredBy": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInput(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
