package http

import (
	"context"
	"log/slog"
)

const serviceName = "sala-escrow-service"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logHTTPOperationError logs a failed sala or wallet operation with the
// caller attached. 5xx responses log at error level, the rest at warn.
func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if p, ok := principalFromContext(ctx); ok {
		fields = append(fields, "subject_id", p.SubjectID, "role", p.Role)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	httpLogger().Log(ctx, level, "sala operation failed", fields...)
}
