package audit

import (
	"context"
	"fmt"
)

// MultiLogger fans events out to several sinks. A sink failure does not
// stop the others.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines audit loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log writes the event to every sink and reports the first error
func (l *MultiLogger) Log(ctx context.Context, event *Event) error {
	var firstErr error
	for _, logger := range l.loggers {
		if err := logger.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink
func (l *MultiLogger) Close() error {
	var firstErr error
	for _, logger := range l.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("audit logger close: %w", err)
		}
	}
	return firstErr
}
