// Package summarizer provides an extractive fallback summary for sessions
// without a configured generation service.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// DefaultMaxSentences bounds the summary length when the caller passes no limit.
const DefaultMaxSentences = 5

var _ domain.Summarizer = (*Frequency)(nil)

// Frequency ranks sentences by normalized token frequency, stopwords
// filtered, and returns the best ones in document order. Deterministic for
// a given input.
type Frequency struct {
	sentenceRe *regexp.Regexp
	tokenRe    *regexp.Regexp
	stopwords  map[string]struct{}
}

// NewFrequency creates the extractive summarizer.
func NewFrequency() *Frequency {
	return &Frequency{
		sentenceRe: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		tokenRe:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:  defaultStopwords(),
	}
}

// Summarize returns up to maxSentences of the highest-scoring sentences,
// preserving their original order.
func (f *Frequency) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := f.sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range f.tokens(sent) {
			if _, skip := f.stopwords[tok]; skip {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		toks := f.tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok]
		}
		// Length normalization keeps long sentences from dominating.
		if n := float64(len(toks)); n > 0 {
			s /= math.Sqrt(n)
		}
		scores[i] = ranked{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " "), nil
}

func (f *Frequency) tokens(text string) []string {
	return f.tokenRe.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after",
		"above", "below", "out", "off", "own", "same", "too", "very", "can",
		"will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
