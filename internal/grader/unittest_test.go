package grader_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cligrade/grader/internal/executable"
	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// binArtifact launches a fixed path without the validation a real compiled
// program goes through; handy for pointing at system binaries or at paths
// that deliberately do not exist.
type binArtifact struct {
	name string
	path string
}

func (b binArtifact) Name() string      { return b.name }
func (b binArtifact) NewCmd() *exec.Cmd { return exec.Command(b.path) }

func mustAssertion(t *testing.T, spec grader.AssertionSpec) grader.Assertion {
	t.Helper()
	a, err := grader.NewAssertion(spec)
	require.NoError(t, err)
	return a
}

func TestUnitTestsCatFixtureFile(t *testing.T) {
	cat, err := executable.NewCompiledProgram("program1", "/bin/cat")
	require.NoError(t, err)

	u := &grader.UnitTests{
		InheritParentEnv: true,
		Files: []grader.FixtureFile{
			{Name: "file.txt", Content: "hello world"},
			{Name: "file2.txt", Content: "hello   world"},
		},
		Tests: []grader.UnitTest{{
			Name:       "Cat from file",
			Executable: cat,
			Assertions: []grader.Assertion{
				mustAssertion(t, grader.AssertionSpec{
					Name:   `should return "hello world"`,
					Args:   []string{"file.txt"},
					Stdout: strPtr("hello world"),
					Status: intPtr(0),
					Weight: 1,
				}),
				mustAssertion(t, grader.AssertionSpec{
					Name:   `should return "hello   world"`,
					Args:   []string{"file2.txt"},
					Stdout: strPtr("hello   world"),
					Status: intPtr(0),
					Weight: 13,
				}),
			},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(14, 14), tr.Total())

	utr := tr.(*grader.UnitTestsResult)
	require.Len(t, utr.UnitTestResults, 1)
	assert.Equal(t, "Cat from file", utr.UnitTestResults[0].Name)
	assert.Equal(t, "program1", utr.UnitTestResults[0].ExecutableName)
	require.Len(t, utr.UnitTestResults[0].AssertionResults, 2)
	for _, ar := range utr.UnitTestResults[0].AssertionResults {
		assert.True(t, ar.Passed)
		assert.Equal(t, grader.ExecutionStatus{Kind: grader.StatusSuccess}, ar.ExecutionStatus)
	}
}

// A target handed over as a relative path must still launch even though
// every assertion runs inside its own scratch directory.
func TestUnitTestsRelativeTargetPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sol"), []byte("#!/bin/sh\nprintf ok\n"), 0o755))
	t.Chdir(dir)

	sol, err := executable.NewCompiledProgram("program1", "./sol")
	require.NoError(t, err)

	u := &grader.UnitTests{
		InheritParentEnv: true,
		Tests: []grader.UnitTest{{
			Name:       "relative target",
			Executable: sol,
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "runs from a scratch directory",
				Stdout: strPtr("ok"),
				Status: intPtr(0),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(1, 1), tr.Total())

	ar := tr.(*grader.UnitTestsResult).UnitTestResults[0].AssertionResults[0]
	assert.Equal(t, grader.ExecutionStatus{Kind: grader.StatusSuccess}, ar.ExecutionStatus)
	assert.True(t, ar.Passed)
}

func TestUnitTestsStdoutMismatchDiagnostic(t *testing.T) {
	cat, err := executable.NewCompiledProgram("program1", "/bin/cat")
	require.NoError(t, err)

	u := &grader.UnitTests{
		InheritParentEnv: true,
		Files:            []grader.FixtureFile{{Name: "file.txt", Content: "hello world"}},
		Tests: []grader.UnitTest{{
			Name:       "Cat from file",
			Executable: cat,
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "extra space expected",
				Args:   []string{"file.txt"},
				Stdout: strPtr("hello  world"),
				Status: intPtr(0),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(0, 1), tr.Total())

	ar := tr.(*grader.UnitTestsResult).UnitTestResults[0].AssertionResults[0]
	assert.False(t, ar.Passed)
	require.NotNil(t, ar.Stdout)
	assert.Equal(t, "hello  world", ar.Stdout.Expected)
	require.NotNil(t, ar.Stdout.Obtained)
	assert.Equal(t, "hello world", *ar.Stdout.Obtained)
}

// Every assertion gets its own working directory: state left behind by one
// must never be visible to the next.
func TestUnitTestsIsolatePerAssertion(t *testing.T) {
	u := &grader.UnitTests{
		InheritParentEnv: true,
		Tests: []grader.UnitTest{{
			Name:       "fresh directory",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{
				mustAssertion(t, grader.AssertionSpec{
					Name:   "first leaves a marker",
					Args:   []string{"-c", "test ! -e marker && touch marker"},
					Status: intPtr(0),
				}),
				mustAssertion(t, grader.AssertionSpec{
					Name:   "second must not see it",
					Args:   []string{"-c", "test ! -e marker && touch marker"},
					Status: intPtr(0),
				}),
			},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(2, 2), tr.Total())
}

func TestUnitTestsSetupRunsInWorkingDirectory(t *testing.T) {
	cat, err := executable.NewCompiledProgram("program1", "/bin/cat")
	require.NoError(t, err)

	u := &grader.UnitTests{
		InheritParentEnv: true,
		Setup: []grader.Command{
			{Program: "/bin/sh", Args: []string{"-c", "printf data > setup.txt"}},
		},
		Teardown: []grader.Command{
			{Program: "/bin/sh", Args: []string{"-c", "rm setup.txt"}},
		},
		Tests: []grader.UnitTest{{
			Name:       "reads setup output",
			Executable: cat,
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "setup file content",
				Args:   []string{"setup.txt"},
				Stdout: strPtr("data"),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(1, 1), tr.Total())
}

func TestUnitTestsExplicitEnvWithoutInheritance(t *testing.T) {
	t.Setenv("CLIGRADE_LEAKY", "should not leak")

	u := &grader.UnitTests{
		Envs:             []grader.EnvVar{{Key: "GREETING", Value: "hi"}},
		InheritParentEnv: false,
		Tests: []grader.UnitTest{{
			Name:       "env scope",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "sees explicit env only",
				Args:   []string{"-c", `printf "%s|%s" "$GREETING" "$CLIGRADE_LEAKY"`},
				Stdout: strPtr("hi|"),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(1, 1), tr.Total())
}

func TestUnitTestsInheritedEnvIsVisible(t *testing.T) {
	t.Setenv("CLIGRADE_INHERITED", "seen")

	u := &grader.UnitTests{
		InheritParentEnv: true,
		Tests: []grader.UnitTest{{
			Name:       "env inherit",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "sees parent env",
				Args:   []string{"-c", `printf "%s" "$CLIGRADE_INHERITED"`},
				Stdout: strPtr("seen"),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(1, 1), tr.Total())
}

func TestUnitTestsTargetSpawnFailureIsGradedNotFatal(t *testing.T) {
	u := &grader.UnitTests{
		InheritParentEnv: true,
		Tests: []grader.UnitTest{{
			Name:       "missing target",
			Executable: binArtifact{name: "ghost", path: "/____no_such_binary"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "never runs",
				Stdout: strPtr("anything"),
				Status: intPtr(0),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(0, 1), tr.Total())

	ar := tr.(*grader.UnitTestsResult).UnitTestResults[0].AssertionResults[0]
	assert.Equal(t, grader.ExecutionStatus{Kind: grader.StatusFailureBeforeExecution}, ar.ExecutionStatus)
	assert.False(t, ar.Passed)
	require.NotNil(t, ar.Stdout)
	assert.Nil(t, ar.Stdout.Obtained)
	require.NotNil(t, ar.Status)
	assert.Nil(t, ar.Status.Obtained)
}

func TestUnitTestsFixtureWriteFailureIsFatal(t *testing.T) {
	u := &grader.UnitTests{
		InheritParentEnv: true,
		Files:            []grader.FixtureFile{{Name: "missing/dir/file.txt", Content: "x"}},
		Tests: []grader.UnitTest{{
			Name:       "never graded",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "unreachable",
				Status: intPtr(0),
			})},
		}},
	}

	_, err := u.Run(score.Weighted, grader.NoopGatherer{})
	assert.ErrorContains(t, err, "materialize fixture file")
}

func TestUnitTestsSetupSpawnFailureIsFatal(t *testing.T) {
	u := &grader.UnitTests{
		InheritParentEnv: true,
		Setup:            []grader.Command{{Program: "/____no_such_setup"}},
		Tests: []grader.UnitTest{{
			Name:       "never graded",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "unreachable",
				Status: intPtr(0),
			})},
		}},
	}

	_, err := u.Run(score.Weighted, grader.NoopGatherer{})
	assert.ErrorContains(t, err, "setup")
}

// A setup command that launches but exits non-zero is not a broken fixture.
func TestUnitTestsSetupNonZeroExitIsTolerated(t *testing.T) {
	u := &grader.UnitTests{
		InheritParentEnv: true,
		Setup:            []grader.Command{{Program: "/bin/sh", Args: []string{"-c", "exit 1"}}},
		Tests: []grader.UnitTest{{
			Name:       "still graded",
			Executable: binArtifact{name: "sh", path: "/bin/sh"},
			Assertions: []grader.Assertion{mustAssertion(t, grader.AssertionSpec{
				Name:   "runs fine",
				Args:   []string{"-c", "exit 0"},
				Status: intPtr(0),
			})},
		}},
	}

	tr, err := u.Run(score.Weighted, grader.NoopGatherer{})
	require.NoError(t, err)
	assert.Equal(t, score.NewWeighted(1, 1), tr.Total())
}
