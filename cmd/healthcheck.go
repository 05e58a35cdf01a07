package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the configured inputs and snapshot sinks are usable",
	Long: `Check the health of the workspace configuration by verifying:
  • Catalog file parses and validates
  • Seed file parses and validates
  • Snapshot database opens and is readable
  • Archive directory and index are readable

This command is useful for debugging configuration before starting a chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var problems int

		fmt.Fprintln(out, sectionStyle.Render("🔍 Workspace Health Check"))
		fmt.Fprintln(out)

		// Step 1: Catalog
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking catalog..."))
		if cfg.CatalogPath == "" {
			c := internal.DefaultCatalog()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Using built-in catalog (%d agents, %d commands)", len(c.Agents), len(c.Commands))))
		} else if c, err := internal.LoadCatalog(cfg.CatalogPath); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Catalog is unusable:"), err)
			problems++
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Catalog loaded (%d agents, %d commands)", len(c.Agents), len(c.Commands))))
			detail(out, "File: %s", cfg.CatalogPath)
		}
		fmt.Fprintln(out)

		// Step 2: Seed
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking seed..."))
		if cfg.SeedPath == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No seed configured, the workspace starts empty"))
		} else if seed, err := internal.LoadSeed(cfg.SeedPath); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Seed is unusable:"), err)
			problems++
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Seed loaded (%d sessions, %d inbox items)", len(seed.Sessions), len(seed.Inbox))))
			detail(out, "File: %s", cfg.SeedPath)
		}
		fmt.Fprintln(out)

		// Step 3: Snapshot database
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking snapshot database..."))
		if cfg.SnapshotDB == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No snapshot database configured, sessions are not saved to SQLite"))
		} else if n, err := checkSnapshotDB(cfg.SnapshotDB); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Snapshot database is unusable:"), err)
			problems++
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Snapshot database readable (%d sessions)", n)))
			detail(out, "Database: %s", cfg.SnapshotDB)
		}
		fmt.Fprintln(out)

		// Step 4: Archive
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking archive..."))
		if cfg.ArchiveDir == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No archive directory configured"))
		} else {
			archive := internal.NewArchiveSnapshotter(cfg.ArchiveDir)
			index, err := archive.LoadIndex()
			switch {
			case os.IsNotExist(err):
				fmt.Fprintln(out, warningStyle.Render("⚠️  Archive is empty, it will be created on the first change"))
				detail(out, "Expected: %s", archive.IndexPath())
			case err != nil:
				fmt.Fprintln(out, errorStyle.Render("❌ Archive index is unreadable:"), err)
				problems++
			default:
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Archive readable (%d sessions)", len(index.Sessions))))
				detail(out, "Index: %s", archive.IndexPath())
				detail(out, "Updated: %s", index.Metadata.UpdatedAt.Format("2006-01-02 15:04"))
			}
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if problems > 0 {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return fmt.Errorf("health check failed: %d problem(s) found", problems)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Ordering: %s", internal.ParseTimelineOrder(cfg.Ordering))))
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Reply delay: %s", cfg.ResponseDelay)))
		return nil
	},
}

func detail(out io.Writer, format string, args ...interface{}) {
	if healthcheckDetails {
		fmt.Fprintf(out, "   "+format+"\n", args...)
	}
}

func checkSnapshotDB(path string) (int, error) {
	s, err := internal.OpenSQLiteSnapshotter(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	sessions, err := s.LoadSessions()
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
