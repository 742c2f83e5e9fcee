package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.pid")

	require.NoError(t, writePIDFile(path))
	assert.Equal(t, os.Getpid(), readPIDFile(path))
}

func TestReadPIDFile_MissingFileReturnsZero(t *testing.T) {
	assert.Equal(t, 0, readPIDFile(filepath.Join(t.TempDir(), "does-not-exist.pid")))
}

func TestReadPIDFile_GarbageContentsReturnsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))
	assert.Equal(t, 0, readPIDFile(path))
}
