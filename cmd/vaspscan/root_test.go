package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a cobra command and captures its output.
func executeCommand(root *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)

	err = root.Execute()

	return stdoutBuf.String(), stderrBuf.String(), err
}

func TestRootCmdHelp(t *testing.T) {
	stdout, stderr, err := executeCommand(rootCmd, "--help")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "vaspscan -r <rootDir>")
	assert.Contains(t, stdout, "--root")
	assert.Contains(t, stdout, "--atol")
	assert.Contains(t, stdout, "--version")
	assert.Contains(t, stdout, "rerun")
}

func TestRootCmdHelpAllFlagsPresent(t *testing.T) {
	stdout, stderr, err := executeCommand(rootCmd, "--help")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	checkFlags := func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		assert.Contains(t, stdout, "--"+f.Name, "help output should list flag --%s", f.Name)
		if f.Shorthand != "" && f.ShorthandDeprecated == "" {
			assert.Contains(t, stdout, "-"+f.Shorthand+",", "help output should list shorthand -%s", f.Shorthand)
		}
	}
	rootCmd.Flags().VisitAll(checkFlags)
	rootCmd.PersistentFlags().VisitAll(checkFlags)
}

func TestRootCmdVersion(t *testing.T) {
	testCmd := &cobra.Command{Use: "vaspscan"}
	testCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", "test-1.2.3", "testcommit123", "2026-01-01T10:00:00Z")
	testCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")

	stdout, stderr, err := executeCommand(testCmd, "--version")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Equal(t, "vaspscan version test-1.2.3 (commit: testcommit123, built: 2026-01-01T10:00:00Z)\n", stdout)
}

func TestRootCmdFlagParsingErrors(t *testing.T) {
	// Fresh command instances keep the parsing checks isolated from the real
	// rootCmd's RunE.
	newTestCmd := func() *cobra.Command {
		cmd := &cobra.Command{
			Use:  "vaspscan -r <rootDir>",
			RunE: func(cmd *cobra.Command, args []string) error { return nil },
		}
		cmd.PersistentFlags().StringP("root", "r", "", "Required. Root directory to scan.")
		_ = cmd.MarkPersistentFlagRequired("root")
		cmd.Flags().Int("concurrency", 0, "Number of parallel workers")
		return cmd
	}

	testCases := []struct {
		name        string
		args        []string
		expectError bool
		errorMsg    string
	}{
		{"UnknownFlag", []string{"-r", ".", "--unknown-flag"}, true, "unknown flag: --unknown-flag"},
		{"MissingRequiredRoot", []string{}, true, "required flag(s) \"root\" not set"},
		{"InvalidIntValue", []string{"-r", ".", "--concurrency", "abc"}, true, "invalid argument \"abc\" for \"--concurrency\" flag"},
		{"ValidFlags", []string{"-r", "."}, false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, stderr, err := executeCommand(newTestCmd(), tc.args...)

			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, stderr, tc.errorMsg)
			} else {
				require.NoError(t, err)
				assert.NotContains(t, stderr, "Error:")
			}
		})
	}
}
