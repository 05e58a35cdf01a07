package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/workspace-chat/internal"
	"github.com/iksnae/workspace-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export chat sessions to various formats (jsonl, md, yaml, json).

You can export all sessions or a specific session by id or title.
Use '--out -' to write to stdout. Use 'workspace-chat sessions' to see
available sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), internal.Hooks{})
		if err != nil {
			return err
		}
		defer ws.Close()

		var ids []internal.SessionID
		if sessionID != "" {
			meta, ok := ws.orch.Store().Find(sessionID)
			if !ok {
				return fmt.Errorf("%w: %s (use 'workspace-chat sessions' to see available sessions)", internal.ErrSessionNotFound, sessionID)
			}
			ids = append(ids, meta.ID)
		} else {
			for _, s := range ws.orch.Store().Sessions() {
				ids = append(ids, s.ID)
			}
		}

		transcripts := make([]*internal.Transcript, 0, len(ids))
		for _, id := range ids {
			t, err := ws.orch.Transcript(id)
			if err != nil {
				return err
			}
			transcripts = append(transcripts, t)
		}

		if outputDir == "-" {
			return writeTranscripts(cmd.OutOrStdout(), exporter, transcripts)
		}

		var written int
		err = internal.ShowProgress(cmd.Context(), cmd.ErrOrStderr(),
			fmt.Sprintf("Exporting %d session(s) to %s", len(transcripts), outputDir),
			func() error {
				var err error
				written, err = exportTranscripts(exporter, transcripts, outputDir)
				return err
			})
		if err != nil {
			return err
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d session(s) exported to %s", written, outputDir))
		return nil
	},
}

// exportTranscripts writes one file per transcript into dir and returns how
// many were written. A failing session is logged and skipped.
func exportTranscripts(exporter export.Exporter, transcripts []*internal.Transcript, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, &internal.ExportError{Format: exporter.Extension(), Path: dir, Err: err}
	}

	written := 0
	for _, t := range transcripts {
		if t == nil {
			internal.LogWarn("Skipping nil session")
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("session_%s.%s", t.Session.ID, exporter.Extension()))

		file, err := os.Create(path)
		if err != nil {
			internal.LogError("Failed to create file %s: %v", path, err)
			continue
		}
		if err := exporter.Export(t, file); err != nil {
			_ = file.Close()
			internal.LogError("Failed to export session %s: %v", t.Session.ID, err)
			continue
		}
		if err := file.Close(); err != nil {
			internal.LogWarn("Failed to close file %s: %v", path, err)
		}
		written++
	}
	return written, nil
}

// writeTranscripts streams transcripts to w back to back
func writeTranscripts(w io.Writer, exporter export.Exporter, transcripts []*internal.Transcript) error {
	for _, t := range transcripts {
		if err := exporter.Export(t, w); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory, or - for stdout")
	exportCmd.Flags().StringVar(&sessionID, "session", "", "Export a specific session by id or title")
}
