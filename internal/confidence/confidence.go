// Package confidence derives a heuristic confidence estimate from retrieval
// similarity scores and the generated answer text. The estimate is not a
// calibrated probability; only its monotonicity and boundary behavior are
// guaranteed.
package confidence

import "strings"

// Default weighting. Tunable via configuration, not a fixed law.
const (
	DefaultTopScoreWeight = 0.7
	DefaultSupportWeight  = 0.3
	DefaultHedgePenalty   = 0.1
	DefaultSupportTarget  = 4
)

// DefaultHedgePhrases mark answers where the model declined to commit.
// Matching is case-insensitive substring search.
var DefaultHedgePhrases = []string{
	"i don't know",
	"i do not know",
	"not specified",
	"cannot be determined",
	"insufficient context",
	"no information",
}

// Weights configures the scorer.
type Weights struct {
	// TopScore scales the best retrieval similarity.
	TopScore float64
	// Support scales the fraction of supporting chunks relative to SupportTarget.
	Support float64
	// HedgePenalty multiplies the score when the answer hedges. Must be in [0,1].
	HedgePenalty float64
	// SupportTarget is the chunk count at which support saturates.
	SupportTarget int
	// HedgePhrases overrides DefaultHedgePhrases when non-nil.
	HedgePhrases []string
}

// Scorer computes confidence from (scores, answer text) and nothing else.
type Scorer struct {
	w       Weights
	phrases []string
}

// New creates a Scorer, filling zero-valued weights with defaults.
func New(w Weights) *Scorer {
	if w.TopScore == 0 && w.Support == 0 {
		w.TopScore = DefaultTopScoreWeight
		w.Support = DefaultSupportWeight
	}
	if w.HedgePenalty == 0 {
		w.HedgePenalty = DefaultHedgePenalty
	}
	if w.SupportTarget <= 0 {
		w.SupportTarget = DefaultSupportTarget
	}
	phrases := w.HedgePhrases
	if phrases == nil {
		phrases = DefaultHedgePhrases
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &Scorer{w: w, phrases: lowered}
}

// Score combines the top similarity, the number of supporting chunks, and a
// hedging check into a value in [0,1]. Monotonic in the top score; hedging
// language forces the result toward zero regardless of retrieval quality.
func (s *Scorer) Score(scores []float64, answer string) float64 {
	if len(scores) == 0 {
		return 0
	}

	top := clamp01(scores[0])
	support := float64(len(scores)) / float64(s.w.SupportTarget)
	if support > 1 {
		support = 1
	}

	c := s.w.TopScore*top + s.w.Support*support
	if s.hedges(answer) {
		c *= s.w.HedgePenalty
	}
	return clamp01(c)
}

func (s *Scorer) hedges(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, p := range s.phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
