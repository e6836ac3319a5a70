package chunker

import (
	"fmt"
	"strconv"

	"docqa/internal/domain"
)

// Default window parameters, in runes.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Splitter produces consecutive overlapping windows over document text.
// The same text and parameters always yield the same chunk sequence.
type Splitter struct {
	size    int
	overlap int
}

// New validates the window parameters and returns a Splitter.
// Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", domain.ErrInvalidConfiguration, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split walks the text producing windows of at most s.size runes, advancing
// by size-overlap each step. The final chunk may be shorter; a text shorter
// than one window yields exactly one chunk. Empty text yields no chunks.
func (s *Splitter) Split(sessionID, text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.size - s.overlap
	estimated := len(runes)/step + 1
	chunks := make([]domain.Chunk, 0, estimated)

	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:        sessionID + ":" + strconv.Itoa(idx),
			SessionID: sessionID,
			Index:     idx,
			Text:      string(runes[start:end]),
			Start:     start,
			End:       end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Size returns the configured window size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured window overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }
