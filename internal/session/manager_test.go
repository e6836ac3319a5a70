package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/answerer"
	"docqa/internal/domain"
	"docqa/internal/embedding/hash"
	"docqa/internal/extract/plaintext"
	"docqa/internal/vectorstore/memory"
)

const policyText = "The policy covers knee surgery performed in network hospitals. " +
	"Knee surgery claims must be filed within thirty days of discharge. " +
	"Dental procedures are excluded from coverage entirely. " +
	"The annual premium is five hundred dollars, payable in advance. " +
	"Coverage begins after a waiting period of ninety days."

// fakeGenerator replays scripted errors, then succeeds with a fixed answer.
type fakeGenerator struct {
	calls  int
	errs   []error
	answer string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) && f.errs[f.calls-1] != nil {
		return "", f.errs[f.calls-1]
	}
	return f.answer, nil
}

// failingExtractor always rejects the document.
type failingExtractor struct{}

func (failingExtractor) Extract(_ context.Context, _ []byte) (string, int, error) {
	return "", 0, fmt.Errorf("%w: corrupt file", domain.ErrUnreadableDocument)
}

func newManager(t *testing.T, gen domain.Generator, opts Options) *Manager {
	t.Helper()
	deps := Deps{
		Extractor: plaintext.New(),
		Embedder:  hash.New(256),
		NewStore:  func() (domain.VectorStore, error) { return memory.New(), nil },
	}
	if gen != nil {
		deps.Answerer = answerer.New(gen, answerer.Config{})
	}
	m, err := NewManager(deps, opts)
	require.NoError(t, err)
	return m
}

func TestNewManager_InvalidChunking(t *testing.T) {
	deps := Deps{
		Extractor: plaintext.New(),
		Embedder:  hash.New(64),
		NewStore:  func() (domain.VectorStore, error) { return memory.New(), nil },
	}
	_, err := NewManager(deps, Options{ChunkSize: 100, ChunkOverlap: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLoadDocument_BecomesReady(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "yes"}, Options{ChunkSize: 80, ChunkOverlap: 10})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := m.Session(id)
	require.NoError(t, err)
	assert.Equal(t, StateReady, sess.State())
	assert.Equal(t, "policy.txt", sess.Document().Name)
	assert.Positive(t, sess.Stats().Chunks)
}

func TestLoadDocument_ExtractionFailureLeavesNoSession(t *testing.T) {
	deps := Deps{
		Extractor: failingExtractor{},
		Embedder:  hash.New(64),
		NewStore:  func() (domain.VectorStore, error) { return memory.New(), nil },
	}
	m, err := NewManager(deps, Options{})
	require.NoError(t, err)

	id, err := m.LoadDocument(context.Background(), []byte("junk"), "broken.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
	assert.Empty(t, id)
}

func TestAsk_AnswersWithConfidenceAndSupport(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "Yes, knee surgery is covered."}, Options{
		ChunkSize: 80, ChunkOverlap: 10, TopK: 3, SimilarityThreshold: 0.05,
	})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Ask(context.Background(), id, "Is knee surgery covered by the policy?", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Yes, knee surgery is covered.", ans.Text)
	assert.Positive(t, ans.Confidence)
	assert.NotEmpty(t, ans.Supporting)
	for i := 1; i < len(ans.Supporting); i++ {
		assert.LessOrEqual(t, ans.Supporting[i].Score, ans.Supporting[i-1].Score)
	}
}

func TestAsk_EmptyRetrievalShortCircuits(t *testing.T) {
	gen := &fakeGenerator{answer: "must not be called"}
	m := newManager(t, gen, Options{ChunkSize: 80, ChunkOverlap: 10, SimilarityThreshold: 0.6})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Ask(context.Background(), id, "zebra quantum volcano xylophone", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, answerer.DefaultInsufficientContext, ans.Text)
	assert.Zero(t, ans.Confidence)
	assert.Empty(t, ans.Supporting)
	assert.Zero(t, gen.calls, "generation service must not run without supporting evidence")
}

func TestAsk_UnknownSession(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "x"}, Options{})
	_, err := m.Ask(context.Background(), "no-such-id", "question?", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAsk_NotReadyAfterFailedReplace(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "x"}, Options{ChunkSize: 80, ChunkOverlap: 10})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	// Replacing with an unreadable document discards the old index.
	err = m.ReplaceDocument(context.Background(), id, []byte{0xff, 0xfe}, "broken.bin")
	require.Error(t, err)

	_, err = m.Ask(context.Background(), id, "Is knee surgery covered?", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestReplaceDocument_NoChunkMixing(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "answered"}, Options{
		ChunkSize: 80, ChunkOverlap: 10, TopK: 10, SimilarityThreshold: 0.01,
	})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	replacement := "Bicycle maintenance requires regular chain lubrication. " +
		"Brake pads should be inspected monthly for wear."
	require.NoError(t, m.ReplaceDocument(context.Background(), id, []byte(replacement), "bikes.txt"))

	sess, err := m.Session(id)
	require.NoError(t, err)
	assert.Equal(t, StateReady, sess.State())
	assert.Equal(t, "bikes.txt", sess.Document().Name)

	ans, err := m.Ask(context.Background(), id, "When should brake pads be inspected?", domain.QueryOptions{})
	require.NoError(t, err)
	for _, sc := range ans.Supporting {
		assert.NotContains(t, sc.Chunk.Text, "knee surgery", "old document chunks must be gone")
	}
}

func TestAskMany_IndependentOutcomesInOrder(t *testing.T) {
	transient := fmt.Errorf("timeout: %w", domain.ErrGenerationService)
	// Question 2's generation fails twice (initial call + the retry).
	gen := &fakeGenerator{errs: []error{nil, transient, transient, nil}, answer: "fine"}
	m := newManager(t, gen, Options{ChunkSize: 80, ChunkOverlap: 10, SimilarityThreshold: 0.01})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	questions := []string{
		"Is knee surgery covered by the policy?",
		"Are dental procedures excluded from coverage?",
		"What is the annual premium payable?",
	}
	outcomes, err := m.AskMany(context.Background(), id, questions, domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, questions[0], outcomes[0].Question)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "fine", outcomes[0].Answer.Text)

	assert.Equal(t, questions[1], outcomes[1].Question)
	assert.ErrorIs(t, outcomes[1].Err, domain.ErrGenerationService)

	assert.Equal(t, questions[2], outcomes[2].Question)
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, "fine", outcomes[2].Answer.Text)
}

func TestAskMany_CancellationBetweenChains(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	m := newManager(t, gen, Options{ChunkSize: 80, ChunkOverlap: 10, SimilarityThreshold: 0.01})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := m.AskMany(ctx, id, []string{"first question?", "second question?"}, domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	// Later chains observe the cancellation; outcomes stay in order.
	assert.Error(t, outcomes[1].Err)
}

func TestSummarize_WithGenerator(t *testing.T) {
	gen := &fakeGenerator{answer: "A policy covering knee surgery with a 90-day wait."}
	m := newManager(t, gen, Options{ChunkSize: 80, ChunkOverlap: 10})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, gen.answer, ans.Text)
	assert.NotEmpty(t, ans.Supporting, "summary is supported by the document chunks")
	assert.Positive(t, ans.Confidence)
}

func TestSummarize_ExtractiveFallbackWithoutGenerator(t *testing.T) {
	m := newManager(t, nil, Options{ChunkSize: 80, ChunkOverlap: 10, SummaryMaxSentences: 2})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.LessOrEqual(t, strings.Count(ans.Text, "."), 2)
}

func TestSummarize_ExtractiveModeIgnoresGenerator(t *testing.T) {
	gen := &fakeGenerator{answer: "generated summary"}
	m := newManager(t, gen, Options{
		ChunkSize: 80, ChunkOverlap: 10, SummaryMaxSentences: 2, ExtractiveSummary: true,
	})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, gen.answer, ans.Text)
	assert.Equal(t, 0, gen.calls)
}

func TestAsk_NoGeneratorConfigured(t *testing.T) {
	m := newManager(t, nil, Options{ChunkSize: 80, ChunkOverlap: 10})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	_, err = m.Ask(context.Background(), id, "anything?", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}

func TestAsk_QuestionFormulation(t *testing.T) {
	gen := &fakeGenerator{answer: "Is knee surgery covered by the policy?"}
	m := newManager(t, gen, Options{
		ChunkSize: 80, ChunkOverlap: 10, SimilarityThreshold: 0.01, FormulateQuestion: true,
	})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)

	ans, err := m.Ask(context.Background(), id, "46M, knee surgery, Pune, 3-month policy", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Is knee surgery covered by the policy?", ans.FormulatedQuestion)
}

func TestDrop_RemovesSession(t *testing.T) {
	m := newManager(t, &fakeGenerator{answer: "x"}, Options{ChunkSize: 80, ChunkOverlap: 10})

	id, err := m.LoadDocument(context.Background(), []byte(policyText), "policy.txt")
	require.NoError(t, err)
	require.NoError(t, m.Drop(context.Background(), id))

	_, err = m.Ask(context.Background(), id, "question?", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.True(t, errors.Is(m.Drop(context.Background(), id), domain.ErrSessionNotFound))
}
