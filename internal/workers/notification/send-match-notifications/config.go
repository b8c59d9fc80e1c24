// internal/workers/notification/send-match-notifications/config.go
package sendmatchnotifications

import "time"

type Config struct {
	Timeout      time.Duration
	BatchLimit   int
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	TopicARN     string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    2 * time.Minute,
		BatchLimit: 100,
	}
}
