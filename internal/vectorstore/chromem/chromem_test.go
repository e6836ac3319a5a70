package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func newReadyStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background(), 3))
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	chunks := []domain.Chunk{
		{ID: "sess:0", SessionID: "sess", Index: 0, Text: "alpha", Start: 0, End: 5},
		{ID: "sess:1", SessionID: "sess", Index: 1, Text: "beta", Start: 3, End: 7},
		{ID: "sess:2", SessionID: "sess", Index: 2, Text: "gamma", Start: 5, End: 10},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	require.NoError(t, s.Upsert(context.Background(), chunks, vectors))
}

func TestSearch_OrdersBySimilarity(t *testing.T) {
	s := newReadyStore(t)
	seed(t, s)

	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sess:0", got[0].Chunk.ID)
	assert.Equal(t, "sess:2", got[1].Chunk.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestSearch_RestoresChunkFields(t *testing.T) {
	s := newReadyStore(t)
	seed(t, s)

	got, err := s.Search(context.Background(), []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	c := got[0].Chunk
	assert.Equal(t, "sess:1", c.ID)
	assert.Equal(t, "sess", c.SessionID)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, "beta", c.Text)
	assert.Equal(t, 3, c.Start)
	assert.Equal(t, 7, c.End)
}

func TestSearch_ClampsTopKToCollectionSize(t *testing.T) {
	s := newReadyStore(t)
	seed(t, s)

	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSearch_EmptyCollection(t *testing.T) {
	s := newReadyStore(t)
	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInit_DiscardsPreviousContent(t *testing.T) {
	s := newReadyStore(t)
	seed(t, s)

	require.NoError(t, s.Init(context.Background(), 3))
	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsert_BeforeInit(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	err = s.Upsert(context.Background(), []domain.Chunk{{ID: "x"}}, [][]float32{{1}})
	assert.Error(t, err)
}

func TestPersistentDB(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{Path: dir, Collection: "docs"})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background(), 3))
	seed(t, s)

	reopened, err := New(Config{Path: dir, Collection: "docs"})
	require.NoError(t, err)
	require.NoError(t, reopened.Init(context.Background(), 3))
	// Init recreates the collection, so a reopened store starts clean.
	got, err := reopened.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
