// internal/workers/notification/send-match-notifications/handler.go
package sendmatchnotifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-matching-workers/internal/common/errors"
	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/common/metrics"
	"loan-matching-workers/internal/storage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-match-notifications"
)

// NotificationSource loads pending notifications and records delivery.
type NotificationSource interface {
	UnnotifiedMatches(ctx context.Context, limit int) ([]storage.MatchNotification, error)
	MarkNotified(ctx context.Context, matchID string) error
}

// EmailSender delivers one plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, from, to, subject, body string) error
}

// SMSPublisher pushes one message to a topic.
type SMSPublisher interface {
	Publish(ctx context.Context, topicARN, message string) error
}

type Handler struct {
	config       *Config
	source       NotificationSource
	email        EmailSender
	sms          SMSPublisher
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, source NotificationSource, email EmailSender, sms SMSPublisher, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		source:       source,
		email:        email,
		sms:          sms,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	started := time.Now()

	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.errorHandler.HandleJobError(context.Background(), client, job, fmt.Errorf("parse input: %w", err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "NOTIFICATION_QUERY_FAILED").Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
}

// Execute delivers notifications for matches not yet announced. Send
// failures are counted and skipped; the match stays unnotified so the
// next run retries it. Only the initial query is a job-level error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.BatchLimit
	}

	pending, err := h.source.UnnotifiedMatches(ctx, limit)
	if err != nil {
		return nil, errors.NewNotificationQueryFailedError(err)
	}

	output := &Output{}
	for _, n := range pending {
		if err := h.deliver(ctx, n); err != nil {
			output.NotificationsFailed++
			h.logger.Warn("notification delivery failed", map[string]interface{}{
				"matchId": n.MatchID,
				"userId":  n.UserID,
				"error":   err.Error(),
			})
			continue
		}

		if err := h.source.MarkNotified(ctx, n.MatchID); err != nil {
			// Delivered but not recorded: the next run re-sends. Better a
			// duplicate email than a silently lost one.
			output.NotificationsFailed++
			h.logger.Error("failed to mark match notified", map[string]interface{}{
				"matchId": n.MatchID,
				"error":   err.Error(),
			})
			continue
		}

		output.NotificationsSent++
	}

	h.logger.Info("notification run finished", map[string]interface{}{
		"sent":   output.NotificationsSent,
		"failed": output.NotificationsFailed,
	})
	return output, nil
}

func (h *Handler) deliver(ctx context.Context, n storage.MatchNotification) error {
	delivered := false

	if h.config.EmailEnabled && h.email != nil {
		subject := "New loan match found for you"
		body := fmt.Sprintf(
			"We found a loan product matching your profile: %s by %s (match score %.0f/100). Log in to review the offer.",
			n.ProductName, n.Provider, n.MatchScore,
		)
		if err := h.email.SendEmail(ctx, h.config.FromEmail, n.Email, subject, body); err != nil {
			return errors.NewNotificationSendFailedError(err)
		}
		metrics.NotificationsSent.WithLabelValues("email").Inc()
		delivered = true
	}

	if h.config.SMSEnabled && h.sms != nil {
		message := fmt.Sprintf("New loan match: %s by %s (score %.0f).", n.ProductName, n.Provider, n.MatchScore)
		if err := h.sms.Publish(ctx, h.config.TopicARN, message); err != nil {
			return errors.NewNotificationSendFailedError(err)
		}
		metrics.NotificationsSent.WithLabelValues("sms").Inc()
		delivered = true
	}

	if !delivered {
		return errors.NewNotificationSendFailedError(fmt.Errorf("no delivery channel enabled"))
	}
	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
