// Package extract routes uploaded bytes to the right text extractor.
package extract

import (
	"bytes"
	"context"

	"docqa/internal/domain"
	"docqa/internal/extract/pdf"
	"docqa/internal/extract/plaintext"
)

var pdfMagic = []byte("%PDF-")

var _ domain.TextExtractor = (*Auto)(nil)

// Auto sniffs the document format and delegates. PDFs are recognized by
// their magic header; everything else is treated as plain text.
type Auto struct {
	pdf  domain.TextExtractor
	text domain.TextExtractor
}

// NewAuto creates an Auto with the default PDF and plaintext extractors.
func NewAuto() *Auto {
	return &Auto{pdf: pdf.New(), text: plaintext.New()}
}

// Extract delegates to the extractor matching the document format.
func (a *Auto) Extract(ctx context.Context, data []byte) (string, int, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return a.pdf.Extract(ctx, data)
	}
	return a.text.Extract(ctx, data)
}
