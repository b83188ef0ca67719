package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/understudy-dev/understudy/internal/journal"
)

// TraceResult holds journal rows for JSON output.
type TraceResult struct {
	RunID   string              `json:"run_id,omitempty"`
	Runs    []string            `json:"runs,omitempty"`
	Calls   []journal.CallRow   `json:"calls,omitempty"`
	Updates []journal.UpdateRow `json:"updates,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "trace <journal.db>",
		Short: "Inspect a recorded call journal",
		Long: `Inspect calls and state updates recorded by a scenario run.

Without --run, lists the run tokens present in the journal. With --run,
prints that run's calls and shared-state updates in sequence order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], runID, cmd)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run token to inspect")

	return cmd
}

func runTrace(opts *RootOptions, path, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error("E_JOURNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		_ = formatter.Error("E_JOURNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()

	if runID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			_ = formatter.Error("E_JOURNAL", err.Error(), nil)
			return WrapExitError(ExitCommandError, "list runs", err)
		}
		return outputRuns(formatter, runs)
	}

	calls, err := j.Calls(ctx, runID)
	if err != nil {
		_ = formatter.Error("E_JOURNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "read calls", err)
	}
	updates, err := j.Updates(ctx, runID)
	if err != nil {
		_ = formatter.Error("E_JOURNAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "read updates", err)
	}

	if len(calls) == 0 && len(updates) == 0 {
		_ = formatter.Error("E_NO_RUN", fmt.Sprintf("run %q not found in journal", runID), nil)
		return NewExitError(ExitCommandError, "run not found")
	}

	return outputTrace(formatter, runID, calls, updates)
}

func outputRuns(formatter *OutputFormatter, runs []string) error {
	if formatter.Format == "json" {
		return formatter.Success(TraceResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no runs recorded")
		return nil
	}
	for _, id := range runs {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}

func outputTrace(formatter *OutputFormatter, runID string, calls []journal.CallRow, updates []journal.UpdateRow) error {
	if formatter.Format == "json" {
		return formatter.Success(TraceResult{RunID: runID, Calls: calls, Updates: updates})
	}

	fmt.Fprintf(formatter.Writer, "run %s\n", runID)
	for _, c := range calls {
		line := fmt.Sprintf("  [%d] %s.%s#%d -> %s", c.Seq, c.Service, c.Method, c.Ordinal, c.Outcome)
		if c.ErrorCode != "" {
			line += fmt.Sprintf(" (%s)", c.ErrorCode)
		}
		if c.Synthetic {
			line += " [synthetic]"
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	for _, u := range updates {
		fmt.Fprintf(formatter.Writer, "  [%d] %s: %s = %s\n", u.Seq, u.Service, u.Key, u.Value)
	}
	return nil
}
