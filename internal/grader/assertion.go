package grader

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// ExecutionStatusKind classifies how far a single assertion's process got.
type ExecutionStatusKind string

const (
	// StatusUndefined is the initial state before anything ran.
	StatusUndefined ExecutionStatusKind = "undefined"
	// StatusSuccess means the process ran to completion and exited with 0.
	// Note this describes the process, not the assertion: an assertion
	// expecting a non-zero status still records StatusSuccess here while
	// failing on its status diagnostic.
	StatusSuccess ExecutionStatusKind = "success"
	// StatusFailureWithStatus means the process exited with a non-zero code.
	StatusFailureWithStatus ExecutionStatusKind = "failure_with_status"
	// StatusFailureBeforeExecution means the process could not be spawned.
	StatusFailureBeforeExecution ExecutionStatusKind = "failure_before_execution"
	// StatusFailureBeforeWait means the process spawned but could not be
	// waited on, or its input could not be delivered.
	StatusFailureBeforeWait ExecutionStatusKind = "failure_before_wait"
	// StatusFailureWithSignalTermination means the process was killed by a
	// signal and reported no exit code.
	StatusFailureWithSignalTermination ExecutionStatusKind = "failure_with_signal_termination"
)

// ExecutionStatus is the terminal state of one assertion's process run.
// ExitCode is only meaningful for StatusFailureWithStatus.
type ExecutionStatus struct {
	Kind     ExecutionStatusKind `json:"kind"`
	ExitCode int                 `json:"exit_code,omitempty"`
}

func statusOf(kind ExecutionStatusKind) ExecutionStatus {
	return ExecutionStatus{Kind: kind}
}

func statusFailureWith(code int) ExecutionStatus {
	return ExecutionStatus{Kind: StatusFailureWithStatus, ExitCode: code}
}

// Diagnostic pairs an asserted expectation with what the run actually
// produced. Obtained is nil when the process never got to produce it.
type Diagnostic[T any] struct {
	Expected T  `json:"expected"`
	Obtained *T `json:"obtained"`
}

// Assertion is a single expected-behavior check: arguments and stdin fed to
// one execution of the target program, with expectations on stdout, stderr
// and/or the exit status. Immutable once built.
type Assertion struct {
	name   string
	args   []string
	stdin  *string
	stdout *string
	stderr *string
	status *int
	weight uint32
}

// AssertionSpec carries the raw fields for NewAssertion. Nil expectation
// fields mean "not asserted".
type AssertionSpec struct {
	Name   string
	Args   []string
	Stdin  *string
	Stdout *string
	Stderr *string
	Status *int
	Weight uint32
}

// NewAssertion validates and builds an assertion. At least one of
// stdout/stderr/status must be asserted; a weight of zero defaults to 1.
func NewAssertion(spec AssertionSpec) (Assertion, error) {
	if spec.Stdout == nil && spec.Stderr == nil && spec.Status == nil {
		return Assertion{}, errors.New("assertion needs at least one expectation (stdout, stderr, or status)")
	}
	weight := spec.Weight
	if weight == 0 {
		weight = 1
	}
	return Assertion{
		name:   spec.Name,
		args:   spec.Args,
		stdin:  spec.Stdin,
		stdout: spec.Stdout,
		stderr: spec.Stderr,
		status: spec.Status,
		weight: weight,
	}, nil
}

func (a Assertion) Name() string   { return a.name }
func (a Assertion) Weight() uint32 { return a.weight }

// AssertionResult records one assertion's outcome: the terminal execution
// status, whether every asserted field matched, and an expected/obtained
// diagnostic for each asserted field that did not.
type AssertionResult struct {
	Name            string              `json:"name"`
	ExecutionStatus ExecutionStatus     `json:"execution_status"`
	Passed          bool                `json:"passed"`
	Weight          uint32              `json:"weight"`
	Stdout          *Diagnostic[string] `json:"stdout,omitempty"`
	Stderr          *Diagnostic[string] `json:"stderr,omitempty"`
	Status          *Diagnostic[int]    `json:"status,omitempty"`
}

// Score is the weight if the assertion passed, zero otherwise.
func (r *AssertionResult) Score() uint32 {
	if r.Passed {
		return r.Weight
	}
	return 0
}

func (r *AssertionResult) MaxScore() uint32 { return r.Weight }

// fillDiagnosticsAgainstNothing records every asserted field with a nil
// obtained value. Used when the process never produced observable output.
func (a Assertion) fillDiagnosticsAgainstNothing(res *AssertionResult) {
	if a.stdout != nil {
		res.Stdout = &Diagnostic[string]{Expected: *a.stdout}
	}
	if a.stderr != nil {
		res.Stderr = &Diagnostic[string]{Expected: *a.stderr}
	}
	if a.status != nil {
		res.Status = &Diagnostic[int]{Expected: *a.status}
	}
}

// Assert executes the preconfigured command (working directory and
// environment are the caller's responsibility) and compares its observable
// behavior against the assertion's expectations.
//
// Execution is unsafe: the target runs with no sandboxing or resource
// limits, and a target that never exits blocks the call indefinitely.
func (a Assertion) Assert(cmd *exec.Cmd) AssertionResult {
	res := AssertionResult{
		Name:            a.name,
		Weight:          a.weight,
		ExecutionStatus: statusOf(StatusUndefined),
	}

	cmd.Args = append(cmd.Args, a.args...)

	// Pipe a stream only when its expectation is set; everything else goes
	// to the null device so unasserted output is not buffered.
	var stdout, stderr bytes.Buffer
	if a.stdout != nil {
		cmd.Stdout = &stdout
	}
	if a.stderr != nil {
		cmd.Stderr = &stderr
	}
	var stdin io.WriteCloser
	if a.stdin != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			res.ExecutionStatus = statusOf(StatusFailureBeforeExecution)
			a.fillDiagnosticsAgainstNothing(&res)
			return res
		}
		stdin = pipe
	}

	if err := cmd.Start(); err != nil {
		res.ExecutionStatus = statusOf(StatusFailureBeforeExecution)
		a.fillDiagnosticsAgainstNothing(&res)
		return res
	}

	// The writer runs concurrently with the wait below so a target that
	// both reads stdin and writes output before EOF cannot deadlock
	// against a full OS pipe buffer. The group is joined before the result
	// is finalized so a write failure is never silently lost.
	var writer errgroup.Group
	if stdin != nil {
		input := *a.stdin
		writer.Go(func() error {
			defer stdin.Close()
			_, err := io.WriteString(stdin, input)
			if err != nil && !isBenignPipeError(err) {
				return err
			}
			return nil
		})
	}

	waitErr := cmd.Wait()
	if writeErr := writer.Wait(); writeErr != nil {
		res.ExecutionStatus = statusOf(StatusFailureBeforeWait)
		a.fillDiagnosticsAgainstNothing(&res)
		return res
	}

	passed := true
	switch {
	case waitErr == nil:
		if a.status != nil && *a.status != 0 {
			obtained := 0
			res.Status = &Diagnostic[int]{Expected: *a.status, Obtained: &obtained}
			passed = false
		}
		res.ExecutionStatus = statusOf(StatusSuccess)
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			res.ExecutionStatus = statusOf(StatusFailureBeforeWait)
			a.fillDiagnosticsAgainstNothing(&res)
			return res
		}
		if code := exitErr.ExitCode(); code >= 0 {
			if a.status != nil && *a.status != code {
				obtained := code
				res.Status = &Diagnostic[int]{Expected: *a.status, Obtained: &obtained}
				passed = false
			}
			res.ExecutionStatus = statusFailureWith(code)
		} else {
			// Killed by a signal, no exit code to report.
			if a.status != nil {
				res.Status = &Diagnostic[int]{Expected: *a.status}
				passed = false
			}
			res.ExecutionStatus = statusOf(StatusFailureWithSignalTermination)
		}
	}

	if a.stdout != nil && stdout.String() != *a.stdout {
		obtained := stdout.String()
		res.Stdout = &Diagnostic[string]{Expected: *a.stdout, Obtained: &obtained}
		passed = false
	}
	if a.stderr != nil && stderr.String() != *a.stderr {
		obtained := stderr.String()
		res.Stderr = &Diagnostic[string]{Expected: *a.stderr, Obtained: &obtained}
		passed = false
	}

	res.Passed = passed
	return res
}

// isBenignPipeError reports whether a stdin write failed only because the
// target exited without draining its input, which is not a grading concern.
func isBenignPipeError(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}
