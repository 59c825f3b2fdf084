package sheets

import (
	"context"
	"time"

	"github.com/elettorale/seggio/pkg/observability"
)

// InstrumentedStore wraps a Store with Prometheus operation metrics
type InstrumentedStore struct {
	store   Store
	metrics *observability.Metrics
}

// NewInstrumentedStore wraps the given store
func NewInstrumentedStore(store Store, metrics *observability.Metrics) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: metrics,
	}
}

func (s *InstrumentedStore) Read(ctx context.Context, rangeName string) ([][]string, error) {
	start := time.Now()
	rows, err := s.store.Read(ctx, rangeName)
	s.metrics.ObserveSheetOperation("read", rangeName, time.Since(start), err)
	return rows, err
}

func (s *InstrumentedStore) UpdateRow(ctx context.Context, rangeName string, row, startCol int, values []string) error {
	start := time.Now()
	err := s.store.UpdateRow(ctx, rangeName, row, startCol, values)
	s.metrics.ObserveSheetOperation("update", rangeName, time.Since(start), err)
	return err
}

func (s *InstrumentedStore) Append(ctx context.Context, rangeName string, row []string) error {
	start := time.Now()
	err := s.store.Append(ctx, rangeName, row)
	s.metrics.ObserveSheetOperation("append", rangeName, time.Since(start), err)
	return err
}
