package util

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFromContext returns the request scoped logger attached to ctx, falling
// back to the global logger.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		if zerolog.DefaultContextLogger != nil {
			return zerolog.DefaultContextLogger
		}

		return &log.Logger
	}

	return l
}

// WithLogger attaches a sub logger carrying the given string fields to ctx.
func WithLogger(ctx context.Context, fields map[string]string) context.Context {
	lctx := LogFromContext(ctx).With()
	for k, v := range fields {
		lctx = lctx.Str(k, v)
	}

	l := lctx.Logger()

	return l.WithContext(ctx)
}
