// internal/workers/matching/run-matching-batch/config.go
package runmatchingbatch

import "time"

type Config struct {
	// Timeout bounds one full batch run, not one user.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
	}
}
