package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileLogger writes audit events as a JSON stream, one logrus entry per
// event.
type FileLogger struct {
	logger *logrus.Logger
	file   *os.File
	mu     sync.Mutex
}

// NewFileLogger creates a file-based audit logger. An empty path logs to
// stdout.
func NewFileLogger(path string) (*FileLogger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	fl := &FileLogger{logger: logger}

	if path == "" {
		logger.SetOutput(os.Stdout)
		return fl, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	fl.file = file
	logger.SetOutput(file)
	return fl, nil
}

// NewWriterLogger creates an audit logger on an arbitrary writer, used by
// tests.
func NewWriterLogger(w io.Writer) *FileLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(w)
	return &FileLogger{logger: logger}
}

// Log writes one event
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"event_type": string(event.Type),
		"status":     event.Status,
		"actor":      event.Actor,
		"target":     event.Target,
		"comune":     event.Comune,
		"sezione":    event.Sezione,
		"request_id": event.RequestID,
		"event_time": event.Timestamp,
	}).Info(event.Message)
	return nil
}

// Close closes the underlying file if one is open
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
