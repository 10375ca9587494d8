// Package executable abstracts over "a thing that can be turned into a
// runnable process". A binary on disk is the obvious artifact, but the
// interface leaves room for interpreted programs (a Python script run
// through its interpreter, for example) without the grading engine caring.
package executable

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Artifact is the capability surface the grading engine needs from a target
// program: a display name and a fresh, unconfigured launch handle.
type Artifact interface {
	Name() string
	NewCmd() *exec.Cmd
}

// CompiledProgram is an artifact backed by an executable file on disk.
type CompiledProgram struct {
	name string
	path string
}

// NewCompiledProgram validates that path points to a regular file with an
// execute bit set and wraps it as an artifact. The path is made absolute so
// the program still launches when assertions run in their own working
// directories.
func NewCompiledProgram(name string, path string) (*CompiledProgram, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve target program %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat target program %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("target program %q is not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("target program %q is not executable", path)
	}
	return &CompiledProgram{name: name, path: abs}, nil
}

func (p *CompiledProgram) Name() string { return p.name }

func (p *CompiledProgram) Path() string { return p.path }

// NewCmd returns a fresh command bound to the program's path. The caller
// owns all further configuration (args, dir, env, stdio).
func (p *CompiledProgram) NewCmd() *exec.Cmd {
	return exec.Command(p.path)
}
