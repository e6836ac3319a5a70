// Package memory provides a brute-force cosine-similarity vector store.
// It is the default backend: one session's index comfortably fits in memory
// and is rebuilt on every document load.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
)

var _ domain.VectorStore = (*Store)(nil)

// Store keeps vectors and chunks side by side, protected by a single lock.
type Store struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []domain.Chunk
}

// New creates an empty store.
func New() *Store { return &Store{} }

// Init sets the vector dimension and drops any previous content.
func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("memory: invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks and their vectors. Vectors are L2-normalized on
// insert so Search reduces to a dot product.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("memory: chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("memory: vector dimension %d, want %d", len(v), s.dimension)
		}
	}
	for i := range chunks {
		s.chunks = append(s.chunks, chunks[i])
		s.vectors = append(s.vectors, normalize(vectors[i]))
	}
	return nil
}

// Search returns the topK most similar chunks by descending cosine score.
func (s *Store) Search(_ context.Context, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || topK > len(s.vectors) {
		topK = len(s.vectors)
	}

	query := normalize(vector)
	scored := make([]domain.ScoredChunk, len(s.vectors))
	for i := range s.vectors {
		scored[i] = domain.ScoredChunk{Chunk: s.chunks[i], Score: dot(s.vectors[i], query)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topK], nil
}

// Clear drops all content but keeps the dimension.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
