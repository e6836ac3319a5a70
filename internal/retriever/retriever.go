// Package retriever bridges chunked documents to a vector store and serves
// similarity lookups over it.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"time"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

// DefaultTopK bounds retrieval when the caller passes no limit.
const DefaultTopK = 4

// DefaultSimilarityThreshold filters out weakly related chunks.
const DefaultSimilarityThreshold = 0.5

// retryBackoff is the wait before the single automatic retry of a failed
// embedding call.
const retryBackoff = 500 * time.Millisecond

// Retriever embeds chunks at ingestion time and answers nearest-neighbor
// queries afterwards. It owns no state beyond its collaborators.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
}

// New creates a Retriever over the given embedder and store.
func New(embedder domain.Embedder, store domain.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Ingest embeds every chunk and inserts them into the store in one batch.
// Embedding happens before any insert, so a failure leaves the store
// untouched (all-or-nothing).
func (r *Retriever) Ingest(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	logger.Section("Ingest")
	logger.Debug("Embedding %d chunks with %s", len(chunks), r.embedder.Name())

	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := r.embedWithRetry(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", chunks[i].Index, err)
		}
		vectors[i] = vec
	}

	if err := r.store.Init(ctx, r.embedder.Dimension()); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	if err := r.store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	logger.Info("Indexed %d chunks", len(chunks))
	return nil
}

// Retrieve embeds the query, looks up its nearest neighbors, drops matches
// below the threshold and returns at most topK entries by descending
// similarity. An empty result is a valid outcome the caller must handle.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) (domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := r.embedWithRetry(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("vector search: %w", err)
	}

	// Stores are expected to return descending scores, but the ordering
	// invariant belongs to the retriever, so enforce it here.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	kept := matches[:0]
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	logger.Debug("Query matched %d/%d chunks above threshold %.2f", len(kept), len(matches), threshold)
	return domain.RetrievalResult{Query: query, Matches: kept}, nil
}

// embedWithRetry retries a failed embedding call once with backoff, unless
// the failure is not transient (bad credentials, bad input).
func (r *Retriever) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !domain.Transient(err) {
		return nil, err
	}
	logger.Warn("Embedding call failed, retrying once: %v", err)
	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.embedder.Embed(ctx, text)
}
