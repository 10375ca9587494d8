package executable_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cligrade/grader/internal/executable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompiledProgram(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	p, err := executable.NewCompiledProgram("program1", path)
	require.NoError(t, err)
	assert.Equal(t, "program1", p.Name())
	assert.Equal(t, path, p.Path())
	assert.Equal(t, path, p.NewCmd().Path)
}

func TestNewCompiledProgramResolvesRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sol"), []byte("#!/bin/sh\nprintf ok\n"), 0o755))
	t.Chdir(dir)

	p, err := executable.NewCompiledProgram("program1", "./sol")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.Path()))
	assert.FileExists(t, p.Path())
	assert.Equal(t, p.Path(), p.NewCmd().Path)
}

func TestNewCompiledProgramRejectsMissingPath(t *testing.T) {
	_, err := executable.NewCompiledProgram("p", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNewCompiledProgramRejectsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o644))

	_, err := executable.NewCompiledProgram("p", path)
	assert.ErrorContains(t, err, "not executable")
}

func TestNewCompiledProgramRejectsDirectory(t *testing.T) {
	_, err := executable.NewCompiledProgram("p", t.TempDir())
	assert.ErrorContains(t, err, "not a regular file")
}
