package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/understudy-dev/understudy/internal/script"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a stand-in configuration file",
		Long: `Validate a stand-in configuration file against the schema.

Checks YAML structure, field names, outcome and policy enums, and delay
bounds. Updates that target shared-state keys outside the declaration
block are reported as warnings: they are silent no-ops at run time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error("E_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "read configuration", err)
	}

	formatter.VerboseLog("Validating %s (%d bytes)", path, len(data))

	if err := script.Validate(data); err != nil {
		return outputValidationFailure(formatter, err)
	}

	cfg, err := script.Decode(data)
	if err != nil {
		return outputValidationFailure(formatter, err)
	}

	warnings := cfg.UndeclaredUpdateKeys()
	return outputValidateSuccess(formatter, warnings)
}

func outputValidateSuccess(formatter *OutputFormatter, warnings []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: warnings})
	}

	fmt.Fprintln(formatter.Writer, "✓ Configuration valid")
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  warning: update targets undeclared key %s\n", w)
	}
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, err error) error {
	if formatter.Format == "json" {
		_ = formatter.Error("E_SCHEMA", err.Error(), nil)
		return NewExitError(ExitFailure, "validation failed")
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintf(formatter.Writer, "  %v\n", err)
	return NewExitError(ExitFailure, "validation failed")
}
