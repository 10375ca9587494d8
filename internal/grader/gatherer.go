package grader

import "github.com/cligrade/grader/internal/score"

// EvalResGatherer receives progress events while a grading run executes.
// The engine itself never logs; everything an observer could want flows
// through this interface, so tests can assert on emitted events and the CLI
// can render them live.
//
// Events arrive strictly in declaration order from a single goroutine.
type EvalResGatherer interface {
	StartGrading(runUuid string, name string)
	StartSection(name string)
	FinishSection(name string, s score.Score)
	StartUnitTest(name string, executableName string)
	FinishUnitTest(res *UnitTestResult)
	StartAssertion(name string)
	FinishAssertion(res *AssertionResult)
	FinishGrading(s score.Score)
}

// MultiGatherer fans every event out to each member, in order.
type MultiGatherer []EvalResGatherer

func (m MultiGatherer) StartGrading(runUuid string, name string) {
	for _, g := range m {
		g.StartGrading(runUuid, name)
	}
}

func (m MultiGatherer) StartSection(name string) {
	for _, g := range m {
		g.StartSection(name)
	}
}

func (m MultiGatherer) FinishSection(name string, s score.Score) {
	for _, g := range m {
		g.FinishSection(name, s)
	}
}

func (m MultiGatherer) StartUnitTest(name string, executableName string) {
	for _, g := range m {
		g.StartUnitTest(name, executableName)
	}
}

func (m MultiGatherer) FinishUnitTest(res *UnitTestResult) {
	for _, g := range m {
		g.FinishUnitTest(res)
	}
}

func (m MultiGatherer) StartAssertion(name string) {
	for _, g := range m {
		g.StartAssertion(name)
	}
}

func (m MultiGatherer) FinishAssertion(res *AssertionResult) {
	for _, g := range m {
		g.FinishAssertion(res)
	}
}

func (m MultiGatherer) FinishGrading(s score.Score) {
	for _, g := range m {
		g.FinishGrading(s)
	}
}

// NoopGatherer discards every event.
type NoopGatherer struct{}

func (NoopGatherer) StartGrading(string, string)       {}
func (NoopGatherer) StartSection(string)               {}
func (NoopGatherer) FinishSection(string, score.Score) {}
func (NoopGatherer) StartUnitTest(string, string)      {}
func (NoopGatherer) FinishUnitTest(*UnitTestResult)    {}
func (NoopGatherer) StartAssertion(string)             {}
func (NoopGatherer) FinishAssertion(*AssertionResult)  {}
func (NoopGatherer) FinishGrading(score.Score)         {}
