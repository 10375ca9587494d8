// Package report renders a finished grading result, either as human-readable
// text or as JSON written to a file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/klauspost/compress/zstd"

	"github.com/cligrade/grader/internal/grader"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	titleLine = color.New(color.Bold)
)

// RenderText writes the result tree to w. With verbose set, failed
// assertions include their expected/obtained diagnostics.
func RenderText(w io.Writer, res *grader.GradingResult, verbose bool) {
	titleLine.Fprintf(w, "%s", res.Name)
	if res.Author != nil {
		fmt.Fprintf(w, " by %s", *res.Author)
	}
	fmt.Fprintf(w, "\nrun %s\n\n", res.RunUuid)

	for _, sec := range res.SectionResults {
		fmt.Fprintf(w, "section %q: %s\n", sec.Name, sec.Score)
		utr, ok := sec.TestResults.(*grader.UnitTestsResult)
		if !ok {
			continue
		}
		for _, ut := range utr.UnitTestResults {
			fmt.Fprintf(w, "  %s (%s): %s\n", ut.Name, ut.ExecutableName, ut.Score)
			for i := range ut.AssertionResults {
				renderAssertion(w, &ut.AssertionResults[i], verbose)
			}
		}
	}

	fmt.Fprintln(w)
	titleLine.Fprintf(w, "total: %s\n", res.Score)
}

func renderAssertion(w io.Writer, res *grader.AssertionResult, verbose bool) {
	mark := passColor.Sprint("ok")
	if !res.Passed {
		mark = failColor.Sprint("FAIL")
	}
	fmt.Fprintf(w, "    [%4s] %s\n", mark, res.Name)
	if res.Passed || !verbose {
		return
	}
	if res.ExecutionStatus.Kind != grader.StatusSuccess {
		fmt.Fprintf(w, "           execution: %s", res.ExecutionStatus.Kind)
		if res.ExecutionStatus.Kind == grader.StatusFailureWithStatus {
			fmt.Fprintf(w, " (exit %d)", res.ExecutionStatus.ExitCode)
		}
		fmt.Fprintln(w)
	}
	renderDiagnostic(w, "stdout", res.Stdout, func(s string) string { return fmt.Sprintf("%q", s) })
	renderDiagnostic(w, "stderr", res.Stderr, func(s string) string { return fmt.Sprintf("%q", s) })
	renderDiagnostic(w, "status", res.Status, func(n int) string { return fmt.Sprintf("%d", n) })
}

func renderDiagnostic[T any](w io.Writer, field string, d *grader.Diagnostic[T], format func(T) string) {
	if d == nil {
		return
	}
	fmt.Fprintf(w, "           %s expected: %s\n", field, format(d.Expected))
	if d.Obtained != nil {
		fmt.Fprintf(w, "           %s obtained: %s\n", field, format(*d.Obtained))
	} else {
		fmt.Fprintf(w, "           %s obtained: <nothing>\n", field)
	}
}

// WriteText renders the result as text into path, colors stripped.
func WriteText(path string, res *grader.GradingResult, verbose bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	noColor := color.NoColor
	color.NoColor = true
	RenderText(f, res, verbose)
	color.NoColor = noColor

	if err := f.Close(); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}

// WriteJSON writes the result as indented JSON into path. A path ending in
// .zst gets zstd-compressed.
func WriteJSON(path string, res *grader.GradingResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal grading result: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	var out io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("init zstd writer: %w", err)
		}
		out = enc
	}

	if _, err := out.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			f.Close()
			return fmt.Errorf("flush zstd stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
