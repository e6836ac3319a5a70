package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 3))

	chunks := []domain.Chunk{
		{ID: "s:0", SessionID: "s", Index: 0, Text: "alpha", Start: 0, End: 5},
		{ID: "s:1", SessionID: "s", Index: 1, Text: "beta", Start: 3, End: 8},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	require.NoError(t, s.Upsert(ctx, chunks, vectors))

	got, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s:0", got[0].Chunk.ID)
	assert.Equal(t, "alpha", got[0].Chunk.Text)
	assert.Equal(t, 0, got[0].Chunk.Start)
	assert.Equal(t, 5, got[0].Chunk.End)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestSearch_TopKLimits(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	))

	got, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestInit_ClearsPreviousSession(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ID: "old"}}, [][]float32{{1, 0}}))

	require.NoError(t, s.Init(ctx, 2))
	got, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 3))
	err := s.Upsert(ctx, []domain.Chunk{{ID: "a"}}, [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0.5, -1.25, 3.75, 0}
	assert.Equal(t, v, decode(encode(v)))
}
