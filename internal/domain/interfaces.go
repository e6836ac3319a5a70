package domain

import "context"

// TextExtractor turns raw document bytes into plain text plus a page count.
// Implementations live outside the pipeline so extraction backends can be
// swapped without touching orchestration code.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (text string, pages int, err error)
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds (chunk, vector) pairs for one session and serves
// nearest-neighbor lookups. Init wipes any previous content.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)
	Clear(ctx context.Context) error
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief extractive summary of the provided text.
// Used when no Generator is configured.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
