package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink collects events for assertions
type memorySink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *memorySink) Log(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestDispatcher(t *testing.T) {
	t.Run("events land in arrival order", func(t *testing.T) {
		sink := &memorySink{}
		d := NewDispatcher(context.Background(), sink, nil, nil)

		for i := 0; i < 10; i++ {
			d.Record(Event{Type: EventTypeAssign, Sezione: string(rune('0' + i))})
		}
		require.NoError(t, d.Close(5*time.Second))

		require.Len(t, sink.events, 10)
		for i, event := range sink.events {
			assert.Equal(t, string(rune('0'+i)), event.Sezione)
		}
		assert.True(t, sink.closed)
	})

	t.Run("timestamps are stamped at record time", func(t *testing.T) {
		sink := &memorySink{}
		d := NewDispatcher(context.Background(), sink, nil, nil)

		before := time.Now()
		d.Record(Event{Type: EventTypeUnassign})
		require.NoError(t, d.Close(5*time.Second))

		require.Len(t, sink.events, 1)
		assert.False(t, sink.events[0].Timestamp.Before(before))
	})

	t.Run("nil dispatcher drops silently", func(t *testing.T) {
		var d *Dispatcher
		d.Record(Event{Type: EventTypeAssign})
		assert.NoError(t, d.Close(time.Second))
	})
}

func TestFileLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	err := logger.Log(context.Background(), &Event{
		Timestamp: time.Now(),
		Type:      EventTypeAssign,
		Status:    StatusSuccess,
		Actor:     "a@x.com",
		Target:    "b@y.com",
		Comune:    "ROMA",
		Sezione:   "1",
	})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "assignment.assign", entry["event_type"])
	assert.Equal(t, "a@x.com", entry["actor"])
	assert.Equal(t, "b@y.com", entry["target"])
}

func TestDBLogger(t *testing.T) {
	t.Run("insert uses question placeholders for sqlite", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
			WillReturnResult(sqlmock.NewResult(0, 0))
		logger, err := NewDBLogger(db, "sqlite3")
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO audit_events").
			WithArgs(sqlmock.AnyArg(), "assignment.assign", StatusSuccess, "a@x.com", "b@y.com", "ROMA", "1", "req-1", "").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = logger.Log(context.Background(), &Event{
			Timestamp: time.Now(),
			Type:      EventTypeAssign,
			Status:    StatusSuccess,
			Actor:     "a@x.com",
			Target:    "b@y.com",
			Comune:    "ROMA",
			Sezione:   "1",
			RequestID: "req-1",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil database is rejected", func(t *testing.T) {
		_, err := NewDBLogger(nil, "sqlite3")
		assert.Error(t, err)
	})
}

func TestRebindPostgres(t *testing.T) {
	got := rebindPostgres("INSERT INTO t (a, b) VALUES (?, ?)")
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", got)
}

func TestMultiLogger(t *testing.T) {
	good := &memorySink{}
	bad := &failingSink{}
	multi := NewMultiLogger(bad, good)

	err := multi.Log(context.Background(), &Event{Type: EventTypeAssign})
	assert.Error(t, err)
	assert.Len(t, good.events, 1, "healthy sink still receives the event")
}

type failingSink struct{}

func (failingSink) Log(ctx context.Context, event *Event) error { return errors.New("disk full") }
func (failingSink) Close() error                                { return nil }
