// Package config loads the application configuration from YAML, applying
// defaults for everything left unset. API keys come from the environment,
// never from the config file.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig configures how document text is split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures similarity lookups.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type      string        `yaml:"type"` // "hash" or "openai"
	Dimension int           `yaml:"dimension,omitempty"`
	OpenAI    *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the generation service.
type GeneratorConfig struct {
	Type   string        `yaml:"type"` // "none" or "openai"
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"` // "memory", "chromem", "sqlite" or "qdrant"
	Path   string        `yaml:"path,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// AnswerConfig configures prompt assembly and the question chain.
type AnswerConfig struct {
	MaxContextChars     int    `yaml:"max_context_chars"`
	InsufficientContext string `yaml:"insufficient_context_message,omitempty"`
	FormulateQuestion   bool   `yaml:"formulate_question"`
}

// ConfidenceConfig exposes the scorer weights as tunable configuration.
type ConfidenceConfig struct {
	TopScoreWeight float64  `yaml:"top_score_weight"`
	SupportWeight  float64  `yaml:"support_weight"`
	HedgePenalty   float64  `yaml:"hedge_penalty"`
	SupportTarget  int      `yaml:"support_target"`
	HedgePhrases   []string `yaml:"hedge_phrases,omitempty"`
}

// SummaryConfig configures the summarize operation.
type SummaryConfig struct {
	// Mode is "auto" (generator when available) or "extractive".
	Mode         string `yaml:"mode"`
	MaxSentences int    `yaml:"max_sentences"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Answer      AnswerConfig      `yaml:"answer"`
	Confidence  ConfidenceConfig  `yaml:"confidence"`
	Summary     SummaryConfig     `yaml:"summary"`
}

// Load reads a config from the given path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunking:    ChunkingConfig{Size: 1000, Overlap: 200},
		Retrieval:   RetrievalConfig{TopK: 4, SimilarityThreshold: 0.5},
		Embedder:    EmbedderConfig{Type: "hash"},
		Generator:   GeneratorConfig{Type: "none"},
		VectorStore: VectorStoreConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = 0.5
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 30)
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "none"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini", 120)
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Answer.MaxContextChars == 0 {
		cfg.Answer.MaxContextChars = 8000
	}
	if cfg.Confidence.TopScoreWeight == 0 && cfg.Confidence.SupportWeight == 0 {
		cfg.Confidence.TopScoreWeight = 0.7
		cfg.Confidence.SupportWeight = 0.3
	}
	if cfg.Confidence.HedgePenalty == 0 {
		cfg.Confidence.HedgePenalty = 0.1
	}
	if cfg.Confidence.SupportTarget == 0 {
		cfg.Confidence.SupportTarget = cfg.Retrieval.TopK
	}
	if cfg.Summary.Mode == "" {
		cfg.Summary.Mode = "auto"
	}
	if cfg.Summary.MaxSentences == 0 {
		cfg.Summary.MaxSentences = 5
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}
