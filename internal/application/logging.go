package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/logging"
	"github.com/example/office-planner/internal/placement"
)

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.NewNop()
}

func serviceLogger(ctx context.Context, base *zap.Logger, serviceName, operation string, fields ...zap.Field) *zap.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := []zap.Field{zap.String("service", serviceName)}
	if operation != "" {
		pairs = append(pairs, zap.String("operation", operation))
	}
	pairs = append(pairs, fields...)
	return logger.With(pairs...)
}

func logFailure(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("error_kind", ErrorKind(err)))
}

// logIntegrityWarnings reports desk pairs whose adjacency could not be decided.
func logIntegrityWarnings(logger *zap.Logger, warnings []placement.DataIntegrityWarning) {
	seen := make(map[string]struct{}, len(warnings))
	for _, w := range warnings {
		key := w.DeskA + "|" + w.DeskB
		if w.DeskB < w.DeskA {
			key = w.DeskB + "|" + w.DeskA
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		logger.Warn("desk adjacency undecidable",
			zap.String("desk_a", w.DeskA),
			zap.String("desk_b", w.DeskB),
			zap.String("reason", w.Reason),
		)
	}
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	}

	var pErr *PlacementError
	if errors.As(err, &pErr) {
		if pErr.Kind == PlacementDuplicate {
			return "placement_duplicate"
		}
		return "placement_rejected"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
