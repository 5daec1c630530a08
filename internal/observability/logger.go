package observability

import (
	"log/slog"

	"github.com/couchcryptid/grid-ingest/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger returns a structured logger writing to stdout with the configured
// level and format.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
