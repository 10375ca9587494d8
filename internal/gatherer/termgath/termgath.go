// Package termgath streams grading progress to a terminal as it happens.
package termgath

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/score"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan)
)

type TerminalGatherer struct {
	w         io.Writer
	verbose   bool
	startedAt time.Time
}

// New creates a terminal gatherer writing to w. With verbose set, failed
// assertions print their expected/obtained diagnostics.
func New(w io.Writer, verbose bool) *TerminalGatherer {
	return &TerminalGatherer{w: w, verbose: verbose}
}

func (t *TerminalGatherer) StartGrading(runUuid string, name string) {
	t.startedAt = time.Now()
	headColor.Fprintf(t.w, "== Grading %s ==\n", name)
	fmt.Fprintf(t.w, "run: %s\n", runUuid)
}

func (t *TerminalGatherer) StartSection(name string) {
	headColor.Fprintf(t.w, "-- Section %s --\n", name)
}

func (t *TerminalGatherer) FinishSection(name string, sc score.Score) {
	fmt.Fprintf(t.w, "-- Section %s: %s --\n", name, sc)
}

func (t *TerminalGatherer) StartUnitTest(name string, executableName string) {
	fmt.Fprintf(t.w, "-> %s (%s)\n", name, executableName)
}

func (t *TerminalGatherer) FinishUnitTest(res *grader.UnitTestResult) {
	fmt.Fprintf(t.w, "<- %s: %s\n", res.Name, res.Score)
}

func (t *TerminalGatherer) StartAssertion(string) {}

func (t *TerminalGatherer) FinishAssertion(res *grader.AssertionResult) {
	verdict := passColor.Sprint("pass")
	if !res.Passed {
		verdict = failColor.Sprint("fail")
	}
	fmt.Fprintf(t.w, "   [%s] %s\n", verdict, res.Name)
	if res.Passed || !t.verbose {
		return
	}
	if res.ExecutionStatus.Kind != grader.StatusSuccess {
		fmt.Fprintf(t.w, "     execution: %s", res.ExecutionStatus.Kind)
		if res.ExecutionStatus.Kind == grader.StatusFailureWithStatus {
			fmt.Fprintf(t.w, " (exit %d)", res.ExecutionStatus.ExitCode)
		}
		fmt.Fprintln(t.w)
	}
	printStringDiagnostic(t.w, "stdout", res.Stdout)
	printStringDiagnostic(t.w, "stderr", res.Stderr)
	printIntDiagnostic(t.w, "status", res.Status)
}

func (t *TerminalGatherer) FinishGrading(sc score.Score) {
	dur := time.Since(t.startedAt).Round(time.Millisecond)
	headColor.Fprintf(t.w, "== Finished in %s: %s ==\n", dur, sc)
}

func printStringDiagnostic(w io.Writer, field string, d *grader.Diagnostic[string]) {
	if d == nil {
		return
	}
	fmt.Fprintf(w, "     %s expected: %q\n", field, d.Expected)
	if d.Obtained != nil {
		fmt.Fprintf(w, "     %s obtained: %q\n", field, *d.Obtained)
	} else {
		fmt.Fprintf(w, "     %s obtained: <nothing>\n", field)
	}
}

func printIntDiagnostic(w io.Writer, field string, d *grader.Diagnostic[int]) {
	if d == nil {
		return
	}
	fmt.Fprintf(w, "     %s expected: %d\n", field, d.Expected)
	if d.Obtained != nil {
		fmt.Fprintf(w, "     %s obtained: %d\n", field, *d.Obtained)
	} else {
		fmt.Fprintf(w, "     %s obtained: <nothing>\n", field)
	}
}
