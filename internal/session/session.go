package session

import (
	"sync"

	"docqa/internal/domain"
	"docqa/internal/retriever"
)

// State tracks where a session is in its document lifecycle.
type State int

const (
	// StateEmpty means no document has been loaded yet.
	StateEmpty State = iota
	// StateIngesting means chunking and embedding are in progress.
	StateIngesting
	// StateReady means the session accepts questions.
	StateReady
)

// String returns the lifecycle stage name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Session holds one document's index and lifecycle state. Ingestion takes
// the write lock; question chains take the read lock, so queries on a ready
// session run in parallel but never interleave with ingestion.
type Session struct {
	id string

	mu        sync.RWMutex
	state     State
	doc       domain.Document
	chunks    []domain.Chunk
	store     domain.VectorStore
	retriever *retriever.Retriever
	stats     domain.IngestStats
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Document returns the loaded document metadata.
func (s *Session) Document() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Stats returns statistics from the last completed ingestion.
func (s *Session) Stats() domain.IngestStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
