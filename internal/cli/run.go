package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/understudy-dev/understudy/internal/harness"
	"github.com/understudy-dev/understudy/internal/journal"
)

// RunResult holds scenario execution results for JSON output.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Halted   bool                 `json:"halted,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	State    map[string]any       `json:"final_state,omitempty"`
	RunID    string               `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var journalPath string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a conformance scenario",
		Long: `Run a conformance scenario against a fresh stand-in set.

The scenario's flow is executed against real sequencers and a real
shared-state store. Expect clauses and assertions decide the exit code:
0 for a passing scenario, 1 for failures.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], journalPath, cmd)
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "record calls and state updates to a SQLite journal")

	return cmd
}

func runScenario(opts *RootOptions, path, journalPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("E_SCENARIO", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	harnessOpts := harness.Options{}
	runID := ""
	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			_ = formatter.Error("E_JOURNAL", err.Error(), nil)
			return WrapExitError(ExitCommandError, "open journal", err)
		}
		defer j.Close()
		harnessOpts.Recorder = j
		runID = j.RunID()
		formatter.VerboseLog("Journaling to %s (run %s)", journalPath, runID)
	}

	result, err := harness.RunWithOptions(scenario, harnessOpts)
	if err != nil {
		_ = formatter.Error("E_RUN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	return outputRunResult(formatter, scenario.Name, result, runID)
}

func outputRunResult(formatter *OutputFormatter, name string, result *harness.Result, runID string) error {
	if formatter.Format == "json" {
		payload := RunResult{
			Scenario: name,
			Pass:     result.Pass,
			Halted:   result.Halted,
			Trace:    result.Trace,
			Errors:   result.Errors,
			State:    result.FinalState,
			RunID:    runID,
		}
		if err := formatter.Success(payload); err != nil {
			return err
		}
		if !result.Pass {
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", name))
		}
		return nil
	}

	if result.Pass {
		fmt.Fprintf(formatter.Writer, "✓ %s (%d calls)\n", name, len(result.Trace))
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
	}

	for _, event := range result.Trace {
		line := fmt.Sprintf("  [%d] %s.%s -> %s", event.Seq, event.Service, event.Call, event.Outcome)
		if event.Error != "" {
			line += fmt.Sprintf(" (%s)", event.Error)
		}
		fmt.Fprintln(formatter.Writer, line)
	}

	for _, msg := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  failure: %s\n", msg)
	}
	if result.Halted {
		fmt.Fprintln(formatter.Writer, "  run halted by exhaustion fault")
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", name))
	}
	return nil
}
