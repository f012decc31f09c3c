package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsWithArgs(t *testing.T) {
	args, action := parseFlagsWithArgs([]string{
		"-downlink", "HRIT",
		"-file", "frames.bin",
		"-output", "/tmp/out",
		"-log-level", "debug",
	})

	assert.Empty(t, action)
	assert.Equal(t, "HRIT", args.downlink)
	assert.Equal(t, "frames.bin", args.inputFile)
	assert.Equal(t, "/tmp/out", args.outputRoot)
	assert.Equal(t, "debug", args.logLevel)
}

func TestParseFlagsHelp(t *testing.T) {
	_, action := parseFlagsWithArgs([]string{"-help"})
	assert.Equal(t, "help", action)
}

func TestParseFlagsVersion(t *testing.T) {
	_, action := parseFlagsWithArgs([]string{"-version"})
	assert.Equal(t, "version", action)
}

func TestBootstrapDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "received")
	require.NoError(t, bootstrapDirs(root))

	for _, p := range []string{
		filepath.Join(root, "LRIT", "IMG", "FD"),
		filepath.Join(root, "LRIT", "ADD", "NWP"),
	} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on an existing tree.
	require.NoError(t, bootstrapDirs(root))
}
