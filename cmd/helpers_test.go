package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of c and its children to its default so
// package-level commands can be executed repeatedly
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolateEnv clears the WSCHAT_* variables and makes replies instant
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"WSCHAT_LOG_FILE", "WSCHAT_SEED", "WSCHAT_CATALOG", "WSCHAT_SNAPSHOT_DB", "WSCHAT_ARCHIVE_DIR", "WSCHAT_ORDERING", "WSCHAT_USER"} {
		t.Setenv(key, "")
	}
	t.Setenv("WSCHAT_LOG_LEVEL", "error")
	t.Setenv("WSCHAT_RESPONSE_DELAY", "1s")
	t.Setenv("WSCHAT_APPROVAL_DELAY", "1s")
	t.Setenv("WSCHAT_TASK_DELAY", "2s")
}

// runCLI executes the root command with args and returns stdout
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}
