package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [document]",
	Short: "Summarize a document",
	Long: `Loads the document and produces a summary. With a generator configured
the summary is written by the model over the indexed chunks; without one it
falls back to extracting the most representative sentences.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = manager.Drop(ctx, id) }()

	ans, err := manager.Summarize(ctx, id)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	cmd.Println(ans.Text)
	cmd.Printf("\nconfidence=%.2f  elapsed=%s\n", ans.Confidence, ans.Elapsed.Round(10*time.Millisecond))
	return nil
}
