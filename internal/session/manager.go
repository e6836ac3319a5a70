// Package session orchestrates single-document question-answering sessions:
// load a document, chunk and embed it, then answer questions against it.
// Sessions are independent; each owns its vector store.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/answerer"
	"docqa/internal/chunker"
	"docqa/internal/confidence"
	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/retriever"
	"docqa/internal/summarizer"
)

const summaryQuestion = "Provide a detailed summary of this document."

const formulateTemplate = `You are an expert assistant. Convert the user's statement of facts into a clear, answerable question about the document.

Example 1:
User statement: "46M, knee surgery, Pune, 3-month policy"
Question: "Is knee surgery covered by the policy?"

Example 2:
User statement: "Car accident, frontal damage, Mumbai"
Question: "What is the coverage for accidental damage to a car in Mumbai?"

User statement: "%s"
Question:`

// Options are the session-level defaults, overridable per query.
type Options struct {
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	SimilarityThreshold float64
	SummaryMaxSentences int
	// ExtractiveSummary forces Summarize onto the extractive path even
	// when a generator is configured.
	ExtractiveSummary bool
	// FormulateQuestion rewrites terse fact statements into answerable
	// questions through the generator before retrieval.
	FormulateQuestion bool
}

// Deps are the collaborators every session shares. Answerer may be nil when
// no generation service is configured; Summarize then falls back to the
// extractive summarizer and Ask fails with ErrGenerationService.
type Deps struct {
	Extractor  domain.TextExtractor
	Embedder   domain.Embedder
	Answerer   *answerer.Answerer
	Summarizer domain.Summarizer
	Scorer     *confidence.Scorer
	// NewStore builds a fresh vector store for each session.
	NewStore func() (domain.VectorStore, error)
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	deps     Deps
	opts     Options
	splitter *chunker.Splitter
}

// NewManager validates the chunking parameters and returns a manager.
func NewManager(deps Deps, opts Options) (*Manager, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = chunker.DefaultSize
	}
	if opts.ChunkOverlap == 0 {
		opts.ChunkOverlap = chunker.DefaultOverlap
	}
	if opts.TopK <= 0 {
		opts.TopK = retriever.DefaultTopK
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = retriever.DefaultSimilarityThreshold
	}
	splitter, err := chunker.New(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if deps.Extractor == nil || deps.Embedder == nil || deps.NewStore == nil {
		return nil, fmt.Errorf("%w: extractor, embedder and store factory are required", domain.ErrInvalidConfiguration)
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarizer.NewFrequency()
	}
	if deps.Scorer == nil {
		deps.Scorer = confidence.New(confidence.Weights{})
	}
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		opts:     opts,
		splitter: splitter,
	}, nil
}

// LoadDocument extracts, chunks and indexes the uploaded bytes into a new
// session and returns its identifier.
func (m *Manager) LoadDocument(ctx context.Context, data []byte, name string) (string, error) {
	store, err := m.deps.NewStore()
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	sess := &Session{
		id:    uuid.New().String(),
		store: store,
	}
	sess.retriever = retriever.New(m.deps.Embedder, sess.store)

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	if err := m.ingest(ctx, sess, data, name); err != nil {
		m.mu.Lock()
		delete(m.sessions, sess.id)
		m.mu.Unlock()
		return "", err
	}
	return sess.id, nil
}

// ReplaceDocument discards the session's current index and ingests a new
// document in its place. Chunks from the two documents never mix.
func (m *Manager) ReplaceDocument(ctx context.Context, id string, data []byte, name string) error {
	sess, err := m.get(id)
	if err != nil {
		return err
	}
	return m.ingest(ctx, sess, data, name)
}

// Drop discards a session and its index.
func (m *Manager) Drop(ctx context.Context, id string) error {
	sess, err := m.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	_ = sess.store.Clear(ctx)
	sess.state = StateEmpty
	sess.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Session returns a live session by id.
func (m *Manager) Session(id string) (*Session, error) {
	return m.get(id)
}

// Ask runs one question chain: optional formulation, retrieval, answer
// generation, confidence scoring.
func (m *Manager) Ask(ctx context.Context, id, question string, opts domain.QueryOptions) (domain.Answer, error) {
	sess, err := m.get(id)
	if err != nil {
		return domain.Answer{}, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.state != StateReady {
		return domain.Answer{}, fmt.Errorf("%w: session is %s", domain.ErrNotReady, sess.state)
	}
	return m.answerQuestion(ctx, sess, question, opts)
}

// AskMany answers each question independently, in input order. A failure in
// one chain never aborts the others; cancellation is honored between
// chains, not mid-call.
func (m *Manager) AskMany(ctx context.Context, id string, questions []string, opts domain.QueryOptions) ([]domain.Outcome, error) {
	sess, err := m.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.state != StateReady {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrNotReady, sess.state)
	}

	outcomes := make([]domain.Outcome, 0, len(questions))
	for i, q := range questions {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				outcomes = append(outcomes, domain.Outcome{Question: q, Err: err})
				continue
			}
		}
		ans, err := m.answerQuestion(ctx, sess, q, opts)
		outcomes = append(outcomes, domain.Outcome{Question: q, Answer: ans, Err: err})
	}
	return outcomes, nil
}

// Summarize answers a fixed summarization prompt over all chunks up to the
// context limit. Without a generator it falls back to the extractive
// summarizer over the full document text.
func (m *Manager) Summarize(ctx context.Context, id string) (domain.Answer, error) {
	sess, err := m.get(id)
	if err != nil {
		return domain.Answer{}, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.state != StateReady {
		return domain.Answer{}, fmt.Errorf("%w: session is %s", domain.ErrNotReady, sess.state)
	}

	started := time.Now()
	if m.deps.Answerer == nil || m.opts.ExtractiveSummary {
		text, err := m.deps.Summarizer.Summarize(sess.doc.Text, m.opts.SummaryMaxSentences)
		if err != nil {
			return domain.Answer{}, err
		}
		return domain.Answer{Text: text, Confidence: 1, Elapsed: time.Since(started)}, nil
	}

	// Every chunk supports the summary; context assembly trims the tail.
	matches := make([]domain.ScoredChunk, len(sess.chunks))
	for i, c := range sess.chunks {
		matches[i] = domain.ScoredChunk{Chunk: c, Score: 1}
	}
	res := domain.RetrievalResult{Query: summaryQuestion, Matches: matches}

	text, err := m.deps.Answerer.Answer(ctx, summaryQuestion, res)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{
		Text:       text,
		Confidence: m.deps.Scorer.Score(scoresOf(res), text),
		Supporting: res.Matches,
		Elapsed:    time.Since(started),
	}, nil
}

// answerQuestion runs the retrieval → generation → scoring chain. Callers
// hold the session read lock.
func (m *Manager) answerQuestion(ctx context.Context, sess *Session, question string, opts domain.QueryOptions) (domain.Answer, error) {
	if m.deps.Answerer == nil {
		return domain.Answer{}, fmt.Errorf("%w: no generation service configured", domain.ErrGenerationService)
	}

	started := time.Now()
	topK := opts.TopK
	if topK <= 0 {
		topK = m.opts.TopK
	}
	threshold := opts.SimilarityThreshold
	if threshold == 0 {
		threshold = m.opts.SimilarityThreshold
	}

	formulated := question
	if m.opts.FormulateQuestion {
		formulated = m.formulate(ctx, question)
	}

	res, err := sess.retriever.Retrieve(ctx, formulated, topK, threshold)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := m.deps.Answerer.Answer(ctx, formulated, res)
	if err != nil {
		return domain.Answer{}, err
	}

	ans := domain.Answer{
		Text:       text,
		Confidence: m.deps.Scorer.Score(scoresOf(res), text),
		Supporting: res.Matches,
		Elapsed:    time.Since(started),
	}
	if formulated != question {
		ans.FormulatedQuestion = formulated
	}
	return ans, nil
}

// formulate rewrites a fact statement into an answerable question. Falls
// back to the raw input when rewriting fails; the chain is still usable.
func (m *Manager) formulate(ctx context.Context, input string) string {
	prompt := fmt.Sprintf(formulateTemplate, input)
	out, err := m.deps.Answerer.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		logger.Warn("Question formulation failed, using raw input: %v", err)
		return input
	}
	formulated := strings.TrimSpace(out)
	logger.Debug("Formulated question: %q", formulated)
	return formulated
}

// ingest drives Empty/Ready → Ingesting → Ready. The old index is
// discarded before the new document is indexed.
func (m *Manager) ingest(ctx context.Context, sess *Session, data []byte, name string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	started := time.Now()
	sess.state = StateIngesting
	if err := sess.store.Clear(ctx); err != nil {
		sess.state = StateEmpty
		return fmt.Errorf("clear previous index: %w", err)
	}

	text, pages, err := m.deps.Extractor.Extract(ctx, data)
	if err != nil {
		sess.state = StateEmpty
		return err
	}
	if strings.TrimSpace(text) == "" {
		sess.state = StateEmpty
		return fmt.Errorf("%w: document contains no extractable text", domain.ErrUnreadableDocument)
	}

	chunks := m.splitter.Split(sess.id, text)
	if err := sess.retriever.Ingest(ctx, chunks); err != nil {
		sess.state = StateEmpty
		return err
	}

	sess.doc = domain.Document{Name: name, Bytes: len(data), PageCount: pages, Text: text}
	sess.chunks = chunks
	sess.stats = domain.IngestStats{Chunks: len(chunks), Elapsed: time.Since(started)}
	sess.state = StateReady
	logger.Info("Session %s ready: %d chunks from %q (%d pages)", sess.id, len(chunks), name, pages)
	return nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}

func scoresOf(res domain.RetrievalResult) []float64 {
	scores := make([]float64, len(res.Matches))
	for i, m := range res.Matches {
		scores[i] = m.Score
	}
	return scores
}
