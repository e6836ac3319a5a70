// Package plaintext treats the uploaded bytes as UTF-8 text.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"docqa/internal/domain"
)

var _ domain.TextExtractor = (*Extractor)(nil)

// Extractor passes text documents through unchanged.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor { return &Extractor{} }

// Extract validates the bytes as UTF-8 and returns them as a single page.
func (e *Extractor) Extract(_ context.Context, data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty document", domain.ErrUnreadableDocument)
	}
	if !utf8.Valid(data) {
		return "", 0, fmt.Errorf("%w: not valid UTF-8 text", domain.ErrUnreadableDocument)
	}
	return string(data), 1, nil
}
