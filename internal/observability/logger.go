// Package observability wires logging, error reporting, and the HTTP
// middleware around them.
package observability

import "go.uber.org/zap"

// NewLogger builds the process logger: human-readable in development,
// JSON in production.
func NewLogger(development bool) *zap.Logger {
	if development {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
