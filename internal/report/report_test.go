package report_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/report"
	"github.com/cligrade/grader/internal/score"
)

func sampleResult() *grader.GradingResult {
	obtained := "5\n"
	author := "vi"
	return &grader.GradingResult{
		RunUuid: "11111111-2222-3333-4444-555555555555",
		Name:    "arithmetic homework",
		Author:  &author,
		Score:   score.NewWeighted(10, 20),
		SectionResults: []*grader.SectionResult{
			{
				Name:  "addition",
				Score: score.NewWeighted(10, 20),
				TestResults: &grader.UnitTestsResult{
					Score: score.NewWeighted(1, 2),
					UnitTestResults: []*grader.UnitTestResult{
						{
							Name:           "adds",
							ExecutableName: "adder",
							Score:          score.NewWeighted(1, 2),
							AssertionResults: []grader.AssertionResult{
								{
									Name:            "small numbers",
									ExecutionStatus: grader.ExecutionStatus{Kind: grader.StatusSuccess},
									Passed:          true,
									Weight:          1,
								},
								{
									Name:            "big numbers",
									ExecutionStatus: grader.ExecutionStatus{Kind: grader.StatusSuccess},
									Passed:          false,
									Weight:          1,
									Stdout: &grader.Diagnostic[string]{
										Expected: "30\n",
										Obtained: &obtained,
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestRenderText(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	report.RenderText(&buf, sampleResult(), false)
	out := buf.String()

	assert.Contains(t, out, "arithmetic homework by vi")
	assert.Contains(t, out, `section "addition": 10/20`)
	assert.Contains(t, out, "adds (adder): 1/2")
	assert.Contains(t, out, "small numbers")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "total: 10/20")
	assert.NotContains(t, out, "expected", "diagnostics only print in verbose mode")
}

func TestRenderTextVerbose(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	report.RenderText(&buf, sampleResult(), true)
	out := buf.String()

	assert.Contains(t, out, `stdout expected: "30\n"`)
	assert.Contains(t, out, `stdout obtained: "5\n"`)
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, report.WriteText(path, sampleResult(), true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "total: 10/20")
	assert.NotContains(t, string(raw), "\x1b[", "file reports must not carry ANSI escapes")
}

// slimResult skips the modality-polymorphic parts of the result tree when
// decoding reports back.
type slimResult struct {
	RunUuid string      `json:"run_uuid"`
	Name    string      `json:"name"`
	Score   score.Score `json:"score"`
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteJSON(path, sampleResult()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var round slimResult
	require.NoError(t, json.Unmarshal(raw, &round))
	assert.Equal(t, "arithmetic homework", round.Name)
	assert.Equal(t, "10/20", round.Score.String())
	assert.Contains(t, string(raw), `"section_results"`)
}

func TestWriteJSONZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json.zst")
	require.NoError(t, report.WriteJSON(path, sampleResult()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	require.NoError(t, err)

	var round slimResult
	require.NoError(t, json.Unmarshal(raw, &round))
	assert.Equal(t, sampleResult().RunUuid, round.RunUuid)
}
