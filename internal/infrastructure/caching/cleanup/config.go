package cleanup

import (
	"time"

	"github.com/dailymirror/mirror-go/pkg/config"
)

// Config holds the cleanup worker settings.
type Config struct {
	CleanupInterval         time.Duration
	FirstRunDelay           time.Duration
	RecommendationRetention time.Duration
	InteractionRetention    time.Duration
	VerboseReporting        bool
}

// NewConfigFromEnv builds the worker configuration from the environment.
func NewConfigFromEnv() *Config {
	return &Config{
		CleanupInterval:         config.CleanupInterval,
		FirstRunDelay:           config.CleanupFirstDelay,
		RecommendationRetention: config.RecommendationRetention,
		InteractionRetention:    config.InteractionRetention,
		VerboseReporting:        config.CleanupVerbose,
	}
}
