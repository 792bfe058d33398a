package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/webhook-scheduler/internal/config"
)

// NewLogger creates a structured zerolog.Logger with process identity fields
// from the config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp().Str("service", "webhook-scheduler")

	if cfg.InstanceID != "" {
		ctx = ctx.Str("instance_id", cfg.InstanceID)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
