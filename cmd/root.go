package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes of the binary.
const (
	exitFailure = 1
	// exitSetup means the run never started: credentials or config missing.
	exitSetup = 2
)

var (
	// version is set by main.
	version = "dev"

	// configPath is the --config flag shared by every subcommand.
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "inboxtriage",
	Short: "Triages your inbox: summaries, calendar entries and reply drafts",
	Long: `inboxtriage reads your unread Gmail messages, classifies each one with a
language model, adds meetings and reminders to Google Calendar and saves reply
drafts. Nothing is ever sent.

Without a subcommand it runs one triage cycle. "serve" exposes the same
pipeline over HTTP and as MCP tools for AI assistants.`,
	SilenceUsage: true,
}

func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxtriage version %s\n" .Version}}`)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "run")
	}

	if err := rootCmd.Execute(); err != nil {
		if missingCredentials(err) {
			os.Exit(exitSetup)
		}
		os.Exit(exitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/inboxtriage/config.yaml)")

	rootCmd.AddCommand(
		newRunCmd(),
		newAuthCmd(),
		newConfirmCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newGenerateDocsCmd(),
		newVersionCmd(),
	)
}
