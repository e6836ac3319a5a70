// Package answerer assembles a bounded prompt from retrieved chunks and
// asks the generation service for an answer.
package answerer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

// DefaultMaxContextChars bounds the prompt context so it stays within the
// generation service's input limit.
const DefaultMaxContextChars = 8000

// DefaultInsufficientContext is returned without calling the generator when
// retrieval produced nothing above the threshold.
const DefaultInsufficientContext = "The document does not contain enough information to answer this question."

// retryBackoff is the wait before the single automatic retry of a failed
// generation call.
const retryBackoff = time.Second

const answerTemplate = `You are an expert document analyst. Based *only* on the CONTEXT provided, answer the user's QUESTION.
Quote the context where possible. If the context does not contain the answer, reply exactly: "insufficient context".

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// Config tunes prompt assembly.
type Config struct {
	MaxContextChars     int
	InsufficientContext string
}

// Answerer turns retrieval results into generated answers.
type Answerer struct {
	generator domain.Generator
	cfg       Config
}

// New creates an Answerer, filling zero-valued config with defaults.
func New(generator domain.Generator, cfg Config) *Answerer {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.InsufficientContext == "" {
		cfg.InsufficientContext = DefaultInsufficientContext
	}
	return &Answerer{generator: generator, cfg: cfg}
}

// InsufficientContext returns the fixed short-circuit response text.
func (a *Answerer) InsufficientContext() string { return a.cfg.InsufficientContext }

// Answer builds the prompt from the retrieval result and calls the
// generator. An empty retrieval short-circuits to the fixed
// insufficient-context response so no answer is invented from nothing.
func (a *Answerer) Answer(ctx context.Context, question string, res domain.RetrievalResult) (string, error) {
	if res.Empty() {
		logger.Debug("Empty retrieval, short-circuiting without generation")
		return a.cfg.InsufficientContext, nil
	}

	prompt := fmt.Sprintf(answerTemplate, a.buildContext(res), question)
	return a.generateWithRetry(ctx, prompt)
}

// Generate exposes raw generation with the same retry policy, for callers
// that build their own prompts (question formulation, summaries).
func (a *Answerer) Generate(ctx context.Context, prompt string) (string, error) {
	return a.generateWithRetry(ctx, prompt)
}

// buildContext concatenates chunk texts by descending similarity, cutting
// off at the configured context budget.
func (a *Answerer) buildContext(res domain.RetrievalResult) string {
	var b strings.Builder
	for i, m := range res.Matches {
		text := strings.TrimSpace(m.Chunk.Text)
		if text == "" {
			continue
		}
		remaining := a.cfg.MaxContextChars - b.Len()
		if remaining <= 0 {
			break
		}
		if len(text) > remaining {
			for remaining > 0 && !utf8.RuneStart(text[remaining]) {
				remaining--
			}
			text = text[:remaining]
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

func (a *Answerer) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	out, err := a.generator.Generate(ctx, prompt)
	if err == nil {
		return strings.TrimSpace(out), nil
	}
	if !domain.Transient(err) {
		return "", err
	}
	logger.Warn("Generation call failed, retrying once: %v", err)
	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	out, err = a.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
