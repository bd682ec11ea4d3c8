package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand(nil)

	assert.Equal(t, "bastion-admin", root.Name)
	assert.Equal(t, "Bastion - admin back-office operator CLI", root.Description)
	assert.NotNil(t, root.Subcommands)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{
		"migrate",
		"seed",
		"hash-password",
		"sweep",
		"revoke-user",
	}

	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
		assert.NotNil(t, root.Subcommands[cmdName].Run, "Expected subcommand %s to be runnable", cmdName)
	}

	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	root := NewRootCommand(nil)

	var err error
	output := captureStdout(t, func() { err = root.usage() })

	assert.NoError(t, err)
	assert.Contains(t, output, "Usage: bastion-admin <command> [args]")
	assert.Contains(t, output, "Commands:")
	for name := range root.Subcommands {
		assert.Contains(t, output, name)
	}
}

func TestCommandExecute_NoArgs(t *testing.T) {
	root := NewRootCommand(nil)

	oldArgs := os.Args
	os.Args = []string{"bastion-admin"}
	defer func() { os.Args = oldArgs }()

	var err error
	output := captureStdout(t, func() { err = root.Execute() })

	assert.NoError(t, err)
	assert.Contains(t, output, "Usage: bastion-admin <command> [args]")
}

func TestCommandExecute_HelpFlag(t *testing.T) {
	root := NewRootCommand(nil)

	testCases := []struct {
		name     string
		helpFlag string
	}{
		{"lowercase -h", "-h"},
		{"uppercase -H", "-H"},
		{"lowercase --help", "--help"},
		{"mixed case --Help", "--Help"},
		{"help word", "help"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			output := captureStdout(t, func() { err = root.ExecuteArgs([]string{tc.helpFlag}) })

			assert.NoError(t, err)
			assert.Contains(t, output, "Usage: bastion-admin <command> [args]")
		})
	}
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand(nil)

	err := root.ExecuteArgs([]string{"nonexistent"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}

func TestCommandExecute_SubcommandWithArgs(t *testing.T) {
	root := NewRootCommand(nil)

	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name:        "test",
		Description: "Test command",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	err := root.ExecuteArgs([]string{"test", "arg1", "arg2", "-flag"})

	assert.NoError(t, err)
	require.Equal(t, []string{"arg1", "arg2", "-flag"}, receivedArgs)
}
