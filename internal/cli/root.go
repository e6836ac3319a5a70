// Package cli wires configuration into pipeline components and exposes the
// cobra command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/answerer"
	"docqa/internal/config"
	"docqa/internal/confidence"
	"docqa/internal/domain"
	"docqa/internal/embedding/hash"
	"docqa/internal/embedding/openai"
	"docqa/internal/extract"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/logger"
	"docqa/internal/session"
	"docqa/internal/vectorstore/chromem"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

var (
	cfgPath string
	verbose bool

	cfg     *config.AppConfig
	manager *session.Manager
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document from your terminal",
	Long: `docqa loads a PDF or text document, indexes it with vector embeddings
and answers natural-language questions grounded in the document text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		logger.SetVerbose(verbose)
		var err error
		if cfgPath == "" {
			var loaded string
			cfg, loaded, err = config.LoadDefault()
			if err == nil {
				logger.Debug("Config loaded from %s", loaded)
			}
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		manager, err = buildManager(cfg)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", domain.UserMessage(err))
		os.Exit(1)
	}
}

// buildManager assembles the pipeline from configuration.
func buildManager(cfg *config.AppConfig) (*session.Manager, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var ans *answerer.Answerer
	switch cfg.Generator.Type {
	case "none":
		// Questions fail fast; summaries fall back to the extractive path.
	case "openai":
		gen, err := genopenai.NewClient(genopenai.Config{
			BaseURL:   cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv: cfg.Generator.OpenAI.APIKeyEnv,
			Model:     cfg.Generator.OpenAI.Model,
			Timeout:   time.Duration(cfg.Generator.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		ans = answerer.New(gen, answerer.Config{
			MaxContextChars:     cfg.Answer.MaxContextChars,
			InsufficientContext: cfg.Answer.InsufficientContext,
		})
	default:
		return nil, fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidConfiguration, cfg.Generator.Type)
	}

	newStore, err := storeFactory(cfg)
	if err != nil {
		return nil, err
	}

	scorer := confidence.New(confidence.Weights{
		TopScore:      cfg.Confidence.TopScoreWeight,
		Support:       cfg.Confidence.SupportWeight,
		HedgePenalty:  cfg.Confidence.HedgePenalty,
		SupportTarget: cfg.Confidence.SupportTarget,
		HedgePhrases:  cfg.Confidence.HedgePhrases,
	})

	return session.NewManager(session.Deps{
		Extractor: extract.NewAuto(),
		Embedder:  embedder,
		Answerer:  ans,
		Scorer:    scorer,
		NewStore:  newStore,
	}, session.Options{
		ChunkSize:           cfg.Chunking.Size,
		ChunkOverlap:        cfg.Chunking.Overlap,
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		SummaryMaxSentences: cfg.Summary.MaxSentences,
		ExtractiveSummary:   cfg.Summary.Mode == "extractive",
		FormulateQuestion:   cfg.Answer.FormulateQuestion,
	})
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hash":
		return hash.New(cfg.Embedder.Dimension), nil
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfiguration, cfg.Embedder.Type)
	}
}

// storeFactory returns a factory building one store per session. File-backed
// stores get a per-session location so sessions never share an index.
func storeFactory(cfg *config.AppConfig) (func() (domain.VectorStore, error), error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return func() (domain.VectorStore, error) { return memory.New(), nil }, nil
	case "chromem":
		path := cfg.VectorStore.Path
		return func() (domain.VectorStore, error) {
			id := uuid.NewString()
			c := chromem.Config{Collection: "docqa-" + id}
			if path != "" {
				c.Path = filepath.Join(path, id)
			}
			return chromem.New(c)
		}, nil
	case "sqlite":
		path := cfg.VectorStore.Path
		if path == "" {
			return nil, fmt.Errorf("%w: sqlite store requires vector_store.path", domain.ErrInvalidConfiguration)
		}
		return func() (domain.VectorStore, error) {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, err
			}
			return sqlite.Open(filepath.Join(path, uuid.NewString()+".db"))
		}, nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil || q.URL == "" {
			return nil, fmt.Errorf("%w: qdrant store requires vector_store.qdrant.url", domain.ErrInvalidConfiguration)
		}
		collection := q.Collection
		if collection == "" {
			collection = "docqa"
		}
		return func() (domain.VectorStore, error) {
			return qdrant.New(qdrant.Config{
				URL:        q.URL,
				APIKey:     q.APIKey,
				Collection: collection + "-" + uuid.NewString(),
				Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfiguration, cfg.VectorStore.Type)
	}
}
