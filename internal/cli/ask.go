package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/logger"
)

var (
	askTopK      int
	askThreshold float64
	askJSON      bool
	askSources   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [document] [question]...",
	Short: "Answer one or more questions about a document",
	Long: `Loads the document, indexes it and answers each question in order.
Questions are answered independently: a failure in one never aborts the rest.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "minimum similarity for a chunk to count (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answers as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the supporting chunks under each answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = manager.Drop(ctx, id) }()

	opts := domain.QueryOptions{TopK: askTopK, SimilarityThreshold: askThreshold}
	outcomes, err := manager.AskMany(ctx, id, args[1:], opts)
	if err != nil {
		return err
	}

	if askJSON {
		return outputOutcomesJSON(cmd, outcomes)
	}
	for i, o := range outcomes {
		if i > 0 {
			cmd.Println()
		}
		printOutcome(cmd, o)
	}
	return nil
}

func printOutcome(cmd *cobra.Command, o domain.Outcome) {
	cmd.Printf("Q: %s\n", o.Question)
	if o.Err != nil {
		cmd.Printf("   Error: %s\n", domain.UserMessage(o.Err))
		return
	}
	if o.Answer.FormulatedQuestion != "" {
		cmd.Printf("   Interpreted as: %s\n", o.Answer.FormulatedQuestion)
	}
	cmd.Printf("A: %s\n", o.Answer.Text)
	cmd.Printf("   confidence=%.2f  elapsed=%s  supporting=%d\n",
		o.Answer.Confidence, o.Answer.Elapsed.Round(10*time.Millisecond), len(o.Answer.Supporting))
	if askSources {
		for _, sc := range o.Answer.Supporting {
			cmd.Printf("   [%.3f] chunk %d offsets=[%d,%d)\n", sc.Score, sc.Chunk.Index, sc.Chunk.Start, sc.Chunk.End)
		}
	}
}

type outcomeJSON struct {
	Question           string  `json:"question"`
	Answer             string  `json:"answer,omitempty"`
	FormulatedQuestion string  `json:"formulated_question,omitempty"`
	Confidence         float64 `json:"confidence"`
	Supporting         int     `json:"supporting"`
	ElapsedMs          int64   `json:"elapsed_ms"`
	Error              string  `json:"error,omitempty"`
}

func outputOutcomesJSON(cmd *cobra.Command, outcomes []domain.Outcome) error {
	rows := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		row := outcomeJSON{Question: o.Question}
		if o.Err != nil {
			row.Error = domain.UserMessage(o.Err)
		} else {
			row.Answer = o.Answer.Text
			row.FormulatedQuestion = o.Answer.FormulatedQuestion
			row.Confidence = o.Answer.Confidence
			row.Supporting = len(o.Answer.Supporting)
			row.ElapsedMs = o.Answer.Elapsed.Milliseconds()
		}
		rows = append(rows, row)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// loadDocument reads the file and ingests it into a fresh session.
func loadDocument(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	name := filepath.Base(path)
	logger.Info("Indexing %s (%d bytes)", name, len(data))
	id, err := manager.LoadDocument(ctx, data, name)
	if err != nil {
		return "", err
	}
	sess, err := manager.Session(id)
	if err != nil {
		return "", err
	}
	stats := sess.Stats()
	logger.Info("Indexed %d chunks in %s", stats.Chunks, stats.Elapsed.Round(10*time.Millisecond))
	return id, nil
}
