// Package hash provides a deterministic local embedder based on token
// feature hashing. It needs no network or credentials, which makes it the
// default for offline use and the natural embedder for tests.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"docqa/internal/domain"
)

var _ domain.Embedder = (*Embedder)(nil)

// DefaultDimension balances collision rate against vector size for
// single-document corpora.
const DefaultDimension = 256

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder buckets lowercased tokens into a fixed-length vector by FNV
// hash and L2-normalizes the result. The same text always maps to the
// same vector.
type Embedder struct {
	dimension int
}

// New creates an Embedder. A non-positive dimension falls back to the default.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hash" }

// Dimension returns the configured vector length.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed hashes each token into a bucket and normalizes the counts.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimension]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
