package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeDirForFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Run("happy path", func(t *testing.T) {
		filePath := filepath.Join(tempDir, "testDir", "testFile.test")
		require.NoError(t, MakeDirForFile(filePath, "test"))

		f, err := os.Create(filePath)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})
	t.Run("parent is a file", func(t *testing.T) {
		filePath := filepath.Join(tempDir, "file.test")
		require.NoError(t, os.WriteFile(filePath, []byte{1}, 0o644))
		require.Error(t, MakeDirForFile(filepath.Join(filePath, "sub", "error"), "test"))
	})
}
