package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/understudy-dev/understudy/internal/script"
)

// EncodeResult holds the transport string for JSON output.
type EncodeResult struct {
	Transport string `json:"transport"`
	Bytes     int    `json:"bytes"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <config.yaml>",
		Short: "Encode a configuration for environment-variable handoff",
		Long: `Encode a configuration file into a transport-safe string.

The document is validated, gzipped, and base64-encoded with the URL
alphabet, so the result can be passed to the application under test
through an environment variable without shell quoting.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(rootOpts, args[0], cmd)
		},
	}
}

func runEncode(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	// Reject invalid documents before they cross the process boundary.
	if err := script.Validate(data); err != nil {
		return outputValidationFailure(formatter, err)
	}

	encoded, err := script.EncodeTransport(data)
	if err != nil {
		_ = formatter.Error("E_ENCODE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "encode configuration", err)
	}

	formatter.VerboseLog("Encoded %d bytes to %d transport characters", len(data), len(encoded))

	if formatter.Format == "json" {
		return formatter.Success(EncodeResult{Transport: encoded, Bytes: len(encoded)})
	}

	fmt.Fprintln(formatter.Writer, encoded)
	return nil
}
