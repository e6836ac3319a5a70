package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [document]",
	Short: "Ask questions interactively",
	Long:  `Loads the document and starts an interactive question loop in the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = manager.Drop(ctx, id) }()

	sess, err := manager.Session(id)
	if err != nil {
		return err
	}
	doc := sess.Document()
	header := fmt.Sprintf("%s  (%d pages, %d chunks)", doc.Name, doc.PageCount, sess.Stats().Chunks)

	m := tui.New(&sessionClient{id: id}, header)
	_, err = tea.NewProgram(m).Run()
	return err
}

// sessionClient adapts the manager API to the single-session TUI port.
type sessionClient struct {
	id string
}

func (c *sessionClient) Ask(ctx context.Context, question string) (domain.Answer, error) {
	return manager.Ask(ctx, c.id, question, domain.QueryOptions{})
}

func (c *sessionClient) Summarize(ctx context.Context) (domain.Answer, error) {
	return manager.Summarize(ctx, c.id)
}
