package cmd

import (
	"fmt"

	"github.com/iksnae/workspace-chat/internal"
	"github.com/iksnae/workspace-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	runFormat    string
	runKeepGoing bool
	runAll       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Replay a scripted conversation",
	Long: `Replay a YAML script of chat intents on a simulated clock and print the
resulting timeline. Replies, approvals and task results arrive as soon as
the script waits long enough for them, so a replay is always the same.

Example script:
  name: migration review
  steps:
    - send: "Start Migration of the homepage with @architect"
    - wait: 5s
    - approve_delegation: {agent: architect}
    - inbox: {id: item-1, action: approve}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := LoadScript(args[0])
		if err != nil {
			return err
		}

		var exporter export.Exporter
		if runFormat != "" {
			if exporter, err = export.NewExporter(runFormat); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		sched := internal.NewManualScheduler()
		hooks := internal.Hooks{}
		if exporter == nil {
			hooks = printingHooks(out)
		}
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), sched, hooks)
		if err != nil {
			return err
		}
		defer ws.Close()

		runner := &scriptRunner{orch: ws.orch, sched: sched, log: cmd.ErrOrStderr(), keepGoing: runKeepGoing}
		if err := runner.Run(cmd.Context(), script); err != nil {
			return err
		}
		internal.LogInfo("Replayed %q: %d step(s) over %s of simulated time", script.Name, len(script.Steps), sched.Now())

		var ids []internal.SessionID
		if runAll {
			for _, s := range ws.orch.Store().Sessions() {
				ids = append(ids, s.ID)
			}
		} else if sid, ok := ws.orch.Store().Selected(); ok {
			ids = append(ids, sid)
		}
		if len(ids) == 0 {
			internal.PrintWarning(out, "No active session after replay")
			return nil
		}

		for _, id := range ids {
			t, err := ws.orch.Transcript(id)
			if err != nil {
				return err
			}
			if exporter != nil {
				if err := exporter.Export(t, out); err != nil {
					return err
				}
				continue
			}
			displaySessionHeader(out, t)
			for i, msg := range t.Messages {
				displayMessage(out, i+1, msg, len(t.Messages))
			}
		}
		if exporter == nil {
			fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("simulated time: %s", sched.Now())))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "Write the result as jsonl, md, yaml or json instead of rendering it")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "Report failing steps and continue")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Print every session, not only the active one")
}
