package permissions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elettorale/seggio/pkg/sheets"
)

func seededStore() *sheets.MemoryStore {
	store := sheets.NewMemoryStore()
	store.Seed(sheets.RangeReferenti, [][]string{
		{"a@x.com", "ROMA", "1"},
	})
	store.Seed(sheets.RangeDati, [][]string{
		{"ROMA", "1", "b@y.com", "10", "20"},
	})
	store.Seed(sheets.RangeKPI, [][]string{
		{"K@X.com"},
	})
	return store
}

func TestSheetResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email has no capabilities", func(t *testing.T) {
		r := NewSheetResolver(seededStore(), NopCache{}, nil)
		caps, err := r.Resolve(ctx, "nobody@nowhere.com")
		require.NoError(t, err)
		assert.Equal(t, Capabilities{}, caps)
	})

	t.Run("referente gets referenti and sections", func(t *testing.T) {
		r := NewSheetResolver(seededStore(), NopCache{}, nil)
		caps, err := r.Resolve(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, caps.Referenti)
		assert.True(t, caps.Sections)
		assert.False(t, caps.KPI)
	})

	t.Run("assigned email gets sections only", func(t *testing.T) {
		r := NewSheetResolver(seededStore(), NopCache{}, nil)
		caps, err := r.Resolve(ctx, "b@y.com")
		require.NoError(t, err)
		assert.True(t, caps.Sections)
		assert.False(t, caps.Referenti)
		assert.False(t, caps.KPI)
	})

	t.Run("kpi membership is case-insensitive", func(t *testing.T) {
		r := NewSheetResolver(seededStore(), NopCache{}, nil)
		caps, err := r.Resolve(ctx, "k@x.com")
		require.NoError(t, err)
		assert.True(t, caps.KPI)
	})

	t.Run("email case does not affect any lookup", func(t *testing.T) {
		r := NewSheetResolver(seededStore(), NopCache{}, nil)
		caps, err := r.Resolve(ctx, "A@X.COM")
		require.NoError(t, err)
		assert.True(t, caps.Referenti)
	})
}

// countingStore counts Read calls to observe caching behavior
type countingStore struct {
	sheets.Store
	reads atomic.Int64
}

func (s *countingStore) Read(ctx context.Context, rangeName string) ([][]string, error) {
	s.reads.Add(1)
	return s.Store.Read(ctx, rangeName)
}

func TestSheetResolver_Caching(t *testing.T) {
	ctx := context.Background()

	t.Run("second resolve within TTL skips the spreadsheet", func(t *testing.T) {
		store := &countingStore{Store: seededStore()}
		r := NewSheetResolver(store, NewMemoryCache(16, time.Minute), nil)

		_, err := r.Resolve(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), store.reads.Load())

		_, err = r.Resolve(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), store.reads.Load())
	})

	t.Run("cache key is case-insensitive", func(t *testing.T) {
		store := &countingStore{Store: seededStore()}
		r := NewSheetResolver(store, NewMemoryCache(16, time.Minute), nil)

		_, err := r.Resolve(ctx, "a@x.com")
		require.NoError(t, err)
		_, err = r.Resolve(ctx, "A@X.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), store.reads.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		store := &failingStore{}
		r := NewSheetResolver(store, NewMemoryCache(16, time.Minute), nil)

		_, err := r.Resolve(ctx, "a@x.com")
		require.Error(t, err)

		_, err = r.Resolve(ctx, "a@x.com")
		require.Error(t, err)
	})
}

type failingStore struct{}

func (s *failingStore) Read(ctx context.Context, rangeName string) ([][]string, error) {
	return nil, errors.New("read quota exceeded")
}

func (s *failingStore) UpdateRow(ctx context.Context, rangeName string, row, startCol int, values []string) error {
	return errors.New("read quota exceeded")
}

func (s *failingStore) Append(ctx context.Context, rangeName string, row []string) error {
	return errors.New("read quota exceeded")
}

func TestSheetResolver_UpstreamFailure(t *testing.T) {
	r := NewSheetResolver(&failingStore{}, NopCache{}, nil)
	_, err := r.Resolve(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}
