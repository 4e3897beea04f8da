package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagConfig, flagLogLevel, flagNamespace = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wmi-mcp.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wmi-mcp "+version+"\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--config", emptyConfig(t), "--log-level", "chatty", "query", "SELECT * FROM Win32_BIOS")
	assert.Error(t, err)
}

func TestQueryRequiresStatement(t *testing.T) {
	_, err := execute(t, "--config", emptyConfig(t), "query")
	assert.Error(t, err)
}
