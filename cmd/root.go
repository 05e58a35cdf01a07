package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/workspace-chat/internal"
	"github.com/iksnae/workspace-chat/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	seedPath    string
	catalogPath string
	snapshotDB  string
	archiveDir  string
	logFile     string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	cfg      config.Config
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "workspace-chat",
	Short: "Chat with delegated agents and resolve their inbox requests",
	Long: `A terminal workspace for conversations with an assistant that delegates
work to specialist agents and raises approval requests in an inbox.

Features:
  • Chat with "/" commands and "@" agent mentions
  • Approve, reject or answer inbox items inline
  • Track delegated agent work and approve it when asked
  • Replay scripted scenarios deterministically
  • Export transcripts (JSONL, Markdown, YAML, JSON)
  • Persist sessions to SQLite or a file archive

Quick Start:
  workspace-chat chat --seed seed.yaml          # Interactive session
  workspace-chat sessions                       # List sessions
  workspace-chat inbox                          # List inbox items
  workspace-chat run scenario.yaml              # Replay a scenario`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = resolveConfig(cmd)
		internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		if verbose {
			internal.SetVerbose(true)
		}
		closeLog = internal.SetupLogger(cfg.LogFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
		}
		closeLog = func() error { return nil }
	},
}

// resolveConfig loads the environment and lets explicit flags win
func resolveConfig(cmd *cobra.Command) config.Config {
	c := config.Load()
	flags := cmd.Flags()
	if flags.Changed("seed") {
		c.SeedPath = seedPath
	}
	if flags.Changed("catalog") {
		c.CatalogPath = catalogPath
	}
	if flags.Changed("snapshot-db") {
		c.SnapshotDB = snapshotDB
	}
	if flags.Changed("archive-dir") {
		c.ArchiveDir = archiveDir
	}
	if flags.Changed("log-file") {
		c.LogFile = logFile
	}
	return c
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "Seed file with sessions and inbox items (env WSCHAT_SEED)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Agent and command catalog file (env WSCHAT_CATALOG)")
	rootCmd.PersistentFlags().StringVar(&snapshotDB, "snapshot-db", "", "SQLite database to persist sessions to (env WSCHAT_SNAPSHOT_DB)")
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive-dir", "", "Directory to archive sessions to (env WSCHAT_ARCHIVE_DIR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (env WSCHAT_LOG_FILE)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
