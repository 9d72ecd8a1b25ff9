// Command threadspipe publishes text and media to Threads from the
// terminal. Long posts are split into reply chains, media is staged on
// temporary storage and grouped into carousels, and OAuth tokens are
// minted and refreshed in place.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/threadkit/threadspipe/internal/logging"
)

// Persistent CLI flags
var envFileFlag string

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "threadspipe",
	Short: "Publish posts and threads to Threads",
	Long: `ThreadsPipe publishes text and media to Threads from the terminal.

Long text is split into a chain of reply posts at the 500-character limit,
local media files are staged on temporary storage (S3 or a GitHub repo) and
grouped into carousels of up to 20 items, and every published post is
verified before the next segment goes out.

Examples:
  threadspipe post --text "Hello from the terminal"
  threadspipe post --text "Release day" --file dist/banner.png --file https://cdn.example.com/clip.mp4
  threadspipe auth --redirect-uri https://example.com/callback
  threadspipe quota --replies
  threadspipe whoami`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Path to a .env file with credentials (default: ./.env when present)")
	rootCmd.AddCommand(postCmd, authCmd, refreshCmd, quotaCmd, whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
