package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and the dev mode. Ranges
// are plain string tables keyed by range name.
type MemoryStore struct {
	mu     sync.RWMutex
	ranges map[string][][]string
	err    error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ranges: make(map[string][][]string),
	}
}

// Seed replaces the contents of a named range
func (s *MemoryStore) Seed(rangeName string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	s.ranges[rangeName] = copied
}

// FailWith makes every following operation return err. Pass nil to heal.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Read returns a copy of the rows of a named range. An unknown range reads
// as empty, matching how the API treats an empty named range.
func (s *MemoryStore) Read(ctx context.Context, rangeName string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	rows := s.ranges[rangeName]
	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	return copied, nil
}

// UpdateRow overwrites cells of one row, growing the row when the written
// span extends past its current width
func (s *MemoryStore) UpdateRow(ctx context.Context, rangeName string, row, startCol int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	rows, ok := s.ranges[rangeName]
	if !ok || row < 0 || row >= len(rows) {
		return fmt.Errorf("row %d out of range for %s", row, rangeName)
	}

	needed := startCol + len(values)
	if len(rows[row]) < needed {
		grown := make([]string, needed)
		copy(grown, rows[row])
		rows[row] = grown
	}
	copy(rows[row][startCol:], values)
	return nil
}

// Append adds a row to the end of a named range
func (s *MemoryStore) Append(ctx context.Context, rangeName string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.ranges[rangeName] = append(s.ranges[rangeName], append([]string(nil), row...))
	return nil
}

// Ping succeeds unless a failure was injected with FailWith
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
