package grader

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cligrade/grader/internal/executable"
	"github.com/cligrade/grader/internal/score"
)

// EnvVar is one environment variable handed to every spawned process of a
// unit-test group.
type EnvVar struct {
	Key   string
	Value string
}

// FixtureFile is materialized into the working directory before every
// assertion of a unit-test group.
type FixtureFile struct {
	Name    string
	Content string
}

// Command is a setup or teardown step: a program and its arguments.
type Command struct {
	Program string
	Args    []string
}

// UnitTest is one executable artifact plus the ordered assertions run
// against it. Read-only during a run.
type UnitTest struct {
	Name       string
	Executable executable.Artifact
	Assertions []Assertion
}

// fixture carries the shared parameters a UnitTests group threads into each
// of its unit tests.
type fixture struct {
	envs             []EnvVar
	inheritParentEnv bool
	files            []FixtureFile
	setup            []Command
	teardown         []Command
}

// run executes every assertion in declared order. Isolation granularity is
// per assertion: each one gets a fresh working directory with the fixture
// files re-materialized, trading speed for strict non-interference between
// test cases.
//
// Fixture failures (directory creation, file writes, setup/teardown
// commands that cannot launch) abort the whole run; target-process failures
// are graded outcomes and do not.
func (t *UnitTest) run(fx *fixture, mode score.Mode, gath EvalResGatherer) (*UnitTestResult, error) {
	gath.StartUnitTest(t.Name, t.Executable.Name())
	result := &UnitTestResult{
		Name:           t.Name,
		ExecutableName: t.Executable.Name(),
		Score:          score.Default(mode),
	}
	for i := range t.Assertions {
		res, err := t.runAssertion(&t.Assertions[i], fx, gath)
		if err != nil {
			return nil, err
		}
		result.addAssertionResult(res)
	}
	gath.FinishUnitTest(result)
	return result, nil
}

func (t *UnitTest) runAssertion(a *Assertion, fx *fixture, gath EvalResGatherer) (AssertionResult, error) {
	dir, err := os.MkdirTemp("", "cligrade-*")
	if err != nil {
		return AssertionResult{}, fmt.Errorf("create working directory: %w", err)
	}
	defer os.RemoveAll(dir)

	for _, f := range fx.files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return AssertionResult{}, fmt.Errorf("materialize fixture file %q: %w", f.Name, err)
		}
	}

	env := buildEnv(fx.inheritParentEnv, fx.envs)

	if err := runCommands(fx.setup, dir, env); err != nil {
		return AssertionResult{}, fmt.Errorf("setup: %w", err)
	}

	cmd := t.Executable.NewCmd()
	cmd.Dir = dir
	cmd.Env = env
	gath.StartAssertion(a.Name())
	res := a.Assert(cmd)
	gath.FinishAssertion(&res)

	if err := runCommands(fx.teardown, dir, env); err != nil {
		return AssertionResult{}, fmt.Errorf("teardown: %w", err)
	}
	return res, nil
}

// buildEnv returns the process environment: the parent's variables when
// inherited, plus the explicit ones. Never nil, since a nil Env would make
// exec inherit unconditionally.
func buildEnv(inheritParent bool, envs []EnvVar) []string {
	env := []string{}
	if inheritParent {
		env = os.Environ()
	}
	for _, e := range envs {
		env = append(env, e.Key+"="+e.Value)
	}
	return env
}

// runCommands launches each command in order inside dir. A command that runs
// and exits non-zero is fine; one that cannot be launched or waited on is a
// broken fixture and aborts the run.
func runCommands(cmds []Command, dir string, env []string) error {
	for _, c := range cmds {
		cmd := exec.Command(c.Program, c.Args...)
		cmd.Dir = dir
		cmd.Env = env
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				return fmt.Errorf("run command %q: %w", c.Program, err)
			}
		}
	}
	return nil
}

// UnitTestResult is the graded outcome of one unit test.
type UnitTestResult struct {
	Name             string            `json:"name"`
	ExecutableName   string            `json:"executable_name"`
	Score            score.Score       `json:"score"`
	AssertionResults []AssertionResult `json:"assertion_results"`
}

func (r *UnitTestResult) addAssertionResult(res AssertionResult) {
	switch r.Score.Mode() {
	case score.Absolute:
		r.Score = r.Score.Add(score.NewAbsolute(res.Score() == res.MaxScore()))
	case score.Weighted:
		r.Score = r.Score.Add(score.NewWeighted(res.Score(), res.MaxScore()))
	}
	r.AssertionResults = append(r.AssertionResults, res)
}

// UnitTests groups unit tests that share environment variables, fixture
// files and setup/teardown commands. It is the only test modality today.
type UnitTests struct {
	Envs             []EnvVar
	InheritParentEnv bool
	Files            []FixtureFile
	Setup            []Command
	Teardown         []Command
	Tests            []UnitTest
}

// Run executes every unit test in declaration order and folds each score
// into the aggregate with the mode's combine rule.
func (u *UnitTests) Run(mode score.Mode, gath EvalResGatherer) (TestsResult, error) {
	fx := &fixture{
		envs:             u.Envs,
		inheritParentEnv: u.InheritParentEnv,
		files:            u.Files,
		setup:            u.Setup,
		teardown:         u.Teardown,
	}
	result := &UnitTestsResult{Score: score.Default(mode)}
	for i := range u.Tests {
		res, err := u.Tests[i].run(fx, mode, gath)
		if err != nil {
			return nil, fmt.Errorf("unit test %q: %w", u.Tests[i].Name, err)
		}
		result.addResult(res)
	}
	return result, nil
}

// UnitTestsResult aggregates the unit-test outcomes of one group, in
// declaration order.
type UnitTestsResult struct {
	Score           score.Score       `json:"score"`
	UnitTestResults []*UnitTestResult `json:"unit_test_results"`
}

func (r *UnitTestsResult) addResult(res *UnitTestResult) {
	r.Score = r.Score.Add(res.Score)
	r.UnitTestResults = append(r.UnitTestResults, res)
}

// Total implements TestsResult.
func (r *UnitTestsResult) Total() score.Score { return r.Score }
