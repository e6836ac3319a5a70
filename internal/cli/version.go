package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X docqa/internal/cli.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("docqa", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
