// internal/workers/notification/send-match-notifications/models.go
package sendmatchnotifications

type Input struct {
	Limit int `json:"limit,omitempty"`
}

type Output struct {
	NotificationsSent   int `json:"notificationsSent"`
	NotificationsFailed int `json:"notificationsFailed"`
}
