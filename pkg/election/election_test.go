package election

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elettorale/seggio/pkg/sheets"
)

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("returns list and candidate rows", func(t *testing.T) {
		store := sheets.NewMemoryStore()
		store.Seed(sheets.RangeListe, [][]string{
			{"Lista Uno"},
			{"Lista Due"},
		})
		store.Seed(sheets.RangeCandidati, [][]string{
			{"Rossi", "Lista Uno"},
		})
		svc := NewService(store)

		lists, err := svc.Lists(ctx)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"Lista Uno"}, {"Lista Due"}}, lists)

		candidates, err := svc.Candidates(ctx)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"Rossi", "Lista Uno"}}, candidates)
	})

	t.Run("empty ranges come back as empty non-nil slices", func(t *testing.T) {
		svc := NewService(sheets.NewMemoryStore())

		lists, err := svc.Lists(ctx)
		require.NoError(t, err)
		assert.NotNil(t, lists)
		assert.Empty(t, lists)
	})
}
