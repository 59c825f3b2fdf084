package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBLogger writes audit events to a SQL database. SQLite backs the default
// single-instance deployment; Postgres (via lib/pq) serves shared ones.
type DBLogger struct {
	db       *sql.DB
	postgres bool
}

// NewDBLogger creates a database audit logger and ensures the table exists.
// driver is the database/sql driver name ("sqlite3" or "postgres").
func NewDBLogger(db *sql.DB, driver string) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{
		db:       db,
		postgres: driver == "postgres",
	}

	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}

	return logger, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		event_time TIMESTAMP NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor VARCHAR(255),
		target VARCHAR(255),
		comune VARCHAR(255),
		sezione VARCHAR(50),
		request_id VARCHAR(100),
		message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_time ON audit_events(event_time);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor);
	CREATE INDEX IF NOT EXISTS idx_audit_events_section ON audit_events(comune, sezione);
	`

	_, err := l.db.Exec(query)
	return err
}

// Log inserts one event
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	query := `
	INSERT INTO audit_events (event_time, event_type, status, actor, target, comune, sezione, request_id, message)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if l.postgres {
		query = rebindPostgres(query)
	}

	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.Type),
		event.Status,
		event.Actor,
		event.Target,
		event.Comune,
		event.Sezione,
		event.RequestID,
		event.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Close closes the database connection
func (l *DBLogger) Close() error {
	return l.db.Close()
}

// rebindPostgres rewrites ? placeholders as $1..$n
func rebindPostgres(query string) string {
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
