// Package chromem adapts the embedded chromem-go database as a vector
// store. With a path configured the index survives process restarts;
// without one it lives in memory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"docqa/internal/domain"
)

var _ domain.VectorStore = (*Store)(nil)

// Config selects the backing database.
type Config struct {
	// Path enables the persistent database. Empty means in-memory.
	Path string
	// Collection names the collection inside the database.
	Collection string
}

// Store wraps one chromem collection.
type Store struct {
	db         *chromem.DB
	name       string
	collection *chromem.Collection
}

// New opens (or creates) the database.
func New(cfg Config) (*Store, error) {
	name := cfg.Collection
	if name == "" {
		name = "chunks"
	}
	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("chromem: open %s: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}
	return &Store{db: db, name: name}, nil
}

// Init recreates the collection, discarding any previous content.
func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("chromem: invalid dimension")
	}
	if err := s.drop(); err != nil {
		return err
	}
	collection, err := s.db.GetOrCreateCollection(s.name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("chromem: create collection: %w", err)
	}
	s.collection = collection
	return nil
}

// Upsert adds all chunks in one batch, carrying chunk fields as metadata.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if s.collection == nil {
		return errors.New("chromem: store not initialized")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chromem: chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		contents[i] = c.Text
		metadatas[i] = map[string]string{
			"session_id": c.SessionID,
			"index":      strconv.Itoa(c.Index),
			"start":      strconv.Itoa(c.Start),
			"end":        strconv.Itoa(c.End),
		}
	}
	if err := s.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("chromem: add documents: %w", err)
	}
	return nil
}

// Search queries the collection by embedding. chromem rejects result counts
// above the collection size, so topK is clamped first.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	if s.collection == nil {
		return nil, errors.New("chromem: store not initialized")
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}

	out := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		chunk := domain.Chunk{ID: r.ID, Text: r.Content}
		if r.Metadata != nil {
			chunk.SessionID = r.Metadata["session_id"]
			chunk.Index, _ = strconv.Atoi(r.Metadata["index"])
			chunk.Start, _ = strconv.Atoi(r.Metadata["start"])
			chunk.End, _ = strconv.Atoi(r.Metadata["end"])
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Score: float64(r.Similarity)})
	}
	return out, nil
}

// Clear drops the collection.
func (s *Store) Clear(_ context.Context) error {
	if err := s.drop(); err != nil {
		return err
	}
	s.collection = nil
	return nil
}

func (s *Store) drop() error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("chromem: delete collection: %w", err)
	}
	return nil
}
