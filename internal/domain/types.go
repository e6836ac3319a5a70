package domain

import "time"

// Document is the raw uploaded content plus the metadata extracted from it.
// It is created once per upload and never mutated.
type Document struct {
	Name      string
	Bytes     int
	PageCount int
	Text      string
}

// Chunk is a contiguous window of document text used for indexing.
// Start and End are rune offsets into the extracted document text.
type Chunk struct {
	ID        string
	SessionID string
	Index     int
	Text      string
	Start     int
	End       int
	Vector    []float32
}

// ScoredChunk pairs a chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is an ordered (descending score) list of matching chunks.
// An empty result is a valid outcome, not an error.
type RetrievalResult struct {
	Query   string
	Matches []ScoredChunk
}

// Empty reports whether no chunk cleared the similarity threshold.
func (r RetrievalResult) Empty() bool { return len(r.Matches) == 0 }

// TopScore returns the best similarity score, or 0 for an empty result.
func (r RetrievalResult) TopScore() float64 {
	if len(r.Matches) == 0 {
		return 0
	}
	return r.Matches[0].Score
}

// Answer is the final product of one question chain.
type Answer struct {
	Text               string
	Confidence         float64
	Supporting         []ScoredChunk
	FormulatedQuestion string
	Elapsed            time.Duration
}

// QueryOptions carries per-request retrieval settings. Zero values fall
// back to the session defaults.
type QueryOptions struct {
	TopK                int
	SimilarityThreshold float64
}

// Outcome is one entry of an AskMany result: either an answer or the error
// that aborted that question's chain. Outcomes keep the input order.
type Outcome struct {
	Question string
	Answer   Answer
	Err      error
}

// IngestStats describes a completed ingestion, mirroring what the caller
// may want to show the user.
type IngestStats struct {
	Chunks  int
	Elapsed time.Duration
}
