// Package sqlite persists a session's index in a SQLite database so it can
// be reused across process restarts. Similarity search is brute force over
// the stored vectors, which is fine at single-document scale.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"docqa/internal/domain"
)

var _ domain.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	text       TEXT NOT NULL,
	start_off  INTEGER NOT NULL,
	end_off    INTEGER NOT NULL,
	vector     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);
`

// Store keeps chunk vectors in a single SQLite table.
type Store struct {
	db        *sql.DB
	dimension int
}

// Open creates the database file (or opens an existing one) and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Init records the dimension and clears previous content.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("sqlite: invalid dimension")
	}
	s.dimension = dimension
	return s.Clear(ctx)
}

// Upsert writes all chunks in one transaction.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("sqlite: chunks and vectors length mismatch")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, session_id, idx, text, start_off, end_off, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return fmt.Errorf("sqlite: vector dimension %d, want %d", len(vectors[i]), s.dimension)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.SessionID, c.Index, c.Text, c.Start, c.End, encode(vectors[i])); err != nil {
			return fmt.Errorf("sqlite: insert chunk %d: %w", c.Index, err)
		}
	}
	return tx.Commit()
}

// Search loads every stored vector and ranks by cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, idx, text, start_off, end_off, vector FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select: %w", err)
	}
	defer rows.Close()

	var scored []domain.ScoredChunk
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Index, &c.Text, &c.Start, &c.End, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		scored = append(scored, domain.ScoredChunk{Chunk: c, Score: cosine(vector, decode(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Clear removes all stored chunks.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// encode packs a vector as little-endian float32 bytes.
func encode(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func decode(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
