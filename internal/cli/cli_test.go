package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/understudy-dev/understudy/internal/script"
)

const validConfig = `
shared_state:
  payments.status: 0
services:
  payments:
    methods:
      charge:
        responses:
          - outcome: error
            error:
              code: timeout
          - value: ok
            updates:
              payments.status: 2
`

const validScenario = `
name: cli-smoke
description: Error then success against the payments stand-in.
config_file: config.yaml
flow:
  - service: payments
    call: charge
    expect:
      error: timeout
  - service: payments
    call: charge
    expect:
      value: ok
assertions:
  - type: state_equals
    key: payments.status
    value: 2
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateValidConfig(t *testing.T) {
	path := writeFixture(t, "config.yaml", validConfig)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Configuration valid")
}

func TestValidateValidConfigJSON(t *testing.T) {
	path := writeFixture(t, "config.yaml", validConfig)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateSchemaViolation(t *testing.T) {
	path := writeFixture(t, "config.yaml", `
services:
  payments:
    methods:
      charge:
        policy: explode
        responses:
          - value: ok
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Validation failed")
}

func TestValidateWarnsOnUndeclaredUpdateKeys(t *testing.T) {
	path := writeFixture(t, "config.yaml", `
services:
  payments:
    methods:
      charge:
        responses:
          - value: ok
            updates:
              ghost.key: 1
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "undeclared key")
	assert.Contains(t, buf.String(), "ghost.key")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunScenarioPasses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(validConfig), 0o644))
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(validScenario), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ cli-smoke")
	assert.Contains(t, buf.String(), "payments.charge -> error (timeout)")
}

func TestRunScenarioFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(validConfig), 0o644))
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: cli-fail
description: Expects the wrong value.
config_file: config.yaml
flow:
  - service: payments
    call: charge
    expect:
      value: ok
`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ cli-fail")
}

func TestRunScenarioWithJournalAndTrace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(validConfig), 0o644))
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(validScenario), 0o644))
	journalPath := filepath.Join(dir, "journal.db")

	runBuf := &bytes.Buffer{}
	runCmd := NewRunCommand(&RootOptions{Format: "json"})
	runCmd.SetOut(runBuf)
	runCmd.SetArgs([]string{scenarioPath, "--journal", journalPath})
	require.NoError(t, runCmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(runBuf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	// The journal now holds one run; trace without --run lists it.
	listBuf := &bytes.Buffer{}
	listCmd := NewTraceCommand(&RootOptions{Format: "text"})
	listCmd.SetOut(listBuf)
	listCmd.SetArgs([]string{journalPath})
	require.NoError(t, listCmd.Execute())

	runID := bytes.TrimSpace(listBuf.Bytes())
	require.NotEmpty(t, runID)

	traceBuf := &bytes.Buffer{}
	traceCmd := NewTraceCommand(&RootOptions{Format: "text"})
	traceCmd.SetOut(traceBuf)
	traceCmd.SetArgs([]string{journalPath, "--run", string(runID)})
	require.NoError(t, traceCmd.Execute())

	out := traceBuf.String()
	assert.Contains(t, out, "payments.charge#0 -> error (timeout)")
	assert.Contains(t, out, "payments.charge#1 -> success")
	assert.Contains(t, out, "payments.status = 2")
}

func TestTraceMissingJournal(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEncodeRoundTrips(t *testing.T) {
	path := writeFixture(t, "config.yaml", validConfig)

	buf := &bytes.Buffer{}
	cmd := NewEncodeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	encoded := string(bytes.TrimSpace(buf.Bytes()))
	require.NotEmpty(t, encoded)

	cfg, err := script.DecodeTransport(encoded)
	require.NoError(t, err)
	assert.Contains(t, cfg.Services, "payments")
}

func TestEncodeRejectsInvalidConfig(t *testing.T) {
	path := writeFixture(t, "config.yaml", "services: 7\n")

	buf := &bytes.Buffer{}
	cmd := NewEncodeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "validate", "x.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
