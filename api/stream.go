// Package api defines the wire shapes of streamed grading progress
// messages. It is dependency-free on purpose so out-of-band consumers can
// vendor just these types.
package api

import "time"

// MsgType is a message type for streaming grading progress
type MsgType string

// Streaming message type constants
const (
	StartRunMsg        MsgType = "run_start"
	StartSectionMsg    MsgType = "section_start"
	FinishSectionMsg   MsgType = "section_finish"
	StartUnitTestMsg   MsgType = "unit_test_start"
	FinishUnitTestMsg  MsgType = "unit_test_finish"
	FinishAssertionMsg MsgType = "assertion_finish"
	FinishRunMsg       MsgType = "run_finish"
)

// Diagnostic size constraints for streaming
const (
	MaxDiagnosticHeight = 40
	MaxDiagnosticWidth  = 80
)

// Header is the common header for all streaming messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// Score is the streamed view of a grading score. Passed is set in absolute
// mode, Current/Max in weighted mode.
type Score struct {
	Mode    string  `json:"mode"`
	Passed  *bool   `json:"passed,omitempty"`
	Current *uint32 `json:"current,omitempty"`
	Max     *uint32 `json:"max,omitempty"`
}

// Diagnostic is an expected/obtained pair for one asserted field, trimmed
// to the streaming size limits. Obtained is nil when the target never got
// to produce the field.
type Diagnostic struct {
	Expected string  `json:"expected"`
	Obtained *string `json:"obtained"`
}

// AssertionVerdict summarizes one assertion outcome for streaming.
type AssertionVerdict struct {
	Name            string      `json:"name"`
	ExecutionStatus string      `json:"execution_status"`
	ExitCode        int         `json:"exit_code,omitempty"`
	Passed          bool        `json:"passed"`
	Weight          uint32      `json:"weight"`
	Stdout          *Diagnostic `json:"stdout,omitempty"`
	Stderr          *Diagnostic `json:"stderr,omitempty"`
	Status          *Diagnostic `json:"status,omitempty"`
}

// StartRun message sent when a grading run begins
type StartRun struct {
	Header
	Name        string `json:"name"`
	StartedTime string `json:"started_time"`
}

// StartSection message sent when a section begins
type StartSection struct {
	Header
	Name string `json:"name"`
}

// FinishSection message sent when a section completes
type FinishSection struct {
	Header
	Name  string `json:"name"`
	Score Score  `json:"score"`
}

// StartUnitTest message sent when a unit test begins
type StartUnitTest struct {
	Header
	Name           string `json:"name"`
	ExecutableName string `json:"executable_name"`
}

// FinishUnitTest message sent when a unit test completes
type FinishUnitTest struct {
	Header
	Name  string `json:"name"`
	Score Score  `json:"score"`
}

// FinishAssertion message sent when an assertion completes
type FinishAssertion struct {
	Header
	Verdict AssertionVerdict `json:"verdict"`
}

// FinishRun message sent when a grading run completes
type FinishRun struct {
	Header
	Score Score `json:"score"`
}

// Helper function to create a header
func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

// Helper functions to create specific streaming message types
func NewStartRun(runUuid, name string) StartRun {
	return StartRun{
		Header:      NewHeader(runUuid, StartRunMsg),
		Name:        name,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartSection(runUuid, name string) StartSection {
	return StartSection{
		Header: NewHeader(runUuid, StartSectionMsg),
		Name:   name,
	}
}

func NewFinishSection(runUuid, name string, s Score) FinishSection {
	return FinishSection{
		Header: NewHeader(runUuid, FinishSectionMsg),
		Name:   name,
		Score:  s,
	}
}

func NewStartUnitTest(runUuid, name, executableName string) StartUnitTest {
	return StartUnitTest{
		Header:         NewHeader(runUuid, StartUnitTestMsg),
		Name:           name,
		ExecutableName: executableName,
	}
}

func NewFinishUnitTest(runUuid, name string, s Score) FinishUnitTest {
	return FinishUnitTest{
		Header: NewHeader(runUuid, FinishUnitTestMsg),
		Name:   name,
		Score:  s,
	}
}

func NewFinishAssertion(runUuid string, verdict AssertionVerdict) FinishAssertion {
	return FinishAssertion{
		Header:  NewHeader(runUuid, FinishAssertionMsg),
		Verdict: verdict,
	}
}

func NewFinishRun(runUuid string, s Score) FinishRun {
	return FinishRun{
		Header: NewHeader(runUuid, FinishRunMsg),
		Score:  s,
	}
}
