package service

import (
	"context"
	"log/slog"
)

func logError(ctx context.Context, msg string, err error, args ...any) {
	slog.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
}
