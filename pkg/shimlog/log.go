package shimlog

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logPtr struct{}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logPtr{}, logger)
}

// Log returns the logger attached to the context or the global logger if
// none was attached
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logPtr{})
	if logger == nil {
		return &log.Logger
	}

	return logger.(*zerolog.Logger)
}
