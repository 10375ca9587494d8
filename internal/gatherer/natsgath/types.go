package natsgath

import (
	"strconv"

	"github.com/cligrade/grader/api"
	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/score"
	"github.com/nats-io/nats.go"
)

type natsGatherer struct {
	nc      *nats.Conn
	subject string
	runUuid string
}

// StartGrading implements grader.EvalResGatherer.
func (s *natsGatherer) StartGrading(runUuid string, name string) {
	s.runUuid = runUuid
	s.send(api.NewStartRun(runUuid, name))
}

// StartSection implements grader.EvalResGatherer.
func (s *natsGatherer) StartSection(name string) {
	s.send(api.NewStartSection(s.runUuid, name))
}

// FinishSection implements grader.EvalResGatherer.
func (s *natsGatherer) FinishSection(name string, sc score.Score) {
	s.send(api.NewFinishSection(s.runUuid, name, toApiScore(sc)))
}

// StartUnitTest implements grader.EvalResGatherer.
func (s *natsGatherer) StartUnitTest(name string, executableName string) {
	s.send(api.NewStartUnitTest(s.runUuid, name, executableName))
}

// FinishUnitTest implements grader.EvalResGatherer.
func (s *natsGatherer) FinishUnitTest(res *grader.UnitTestResult) {
	s.send(api.NewFinishUnitTest(s.runUuid, res.Name, toApiScore(res.Score)))
}

// StartAssertion implements grader.EvalResGatherer.
func (s *natsGatherer) StartAssertion(string) {}

// FinishAssertion implements grader.EvalResGatherer.
func (s *natsGatherer) FinishAssertion(res *grader.AssertionResult) {
	s.send(api.NewFinishAssertion(s.runUuid, toApiVerdict(res)))
}

// FinishGrading implements grader.EvalResGatherer.
func (s *natsGatherer) FinishGrading(sc score.Score) {
	s.send(api.NewFinishRun(s.runUuid, toApiScore(sc)))
}

func toApiScore(sc score.Score) api.Score {
	out := api.Score{Mode: string(sc.Mode())}
	switch sc.Mode() {
	case score.Absolute:
		passed := sc.Passed()
		out.Passed = &passed
	case score.Weighted:
		current, max := sc.Current(), sc.Max()
		out.Current = &current
		out.Max = &max
	}
	return out
}

func toApiVerdict(res *grader.AssertionResult) api.AssertionVerdict {
	return api.AssertionVerdict{
		Name:            res.Name,
		ExecutionStatus: string(res.ExecutionStatus.Kind),
		ExitCode:        res.ExecutionStatus.ExitCode,
		Passed:          res.Passed,
		Weight:          res.Weight,
		Stdout:          trimStringDiagnostic(res.Stdout),
		Stderr:          trimStringDiagnostic(res.Stderr),
		Status:          statusDiagnostic(res.Status),
	}
}

func trimStringDiagnostic(d *grader.Diagnostic[string]) *api.Diagnostic {
	if d == nil {
		return nil
	}
	out := &api.Diagnostic{
		Expected: trimToRect(d.Expected, api.MaxDiagnosticHeight, api.MaxDiagnosticWidth),
	}
	if d.Obtained != nil {
		obtained := trimToRect(*d.Obtained, api.MaxDiagnosticHeight, api.MaxDiagnosticWidth)
		out.Obtained = &obtained
	}
	return out
}

func statusDiagnostic(d *grader.Diagnostic[int]) *api.Diagnostic {
	if d == nil {
		return nil
	}
	out := &api.Diagnostic{Expected: strconv.Itoa(d.Expected)}
	if d.Obtained != nil {
		obtained := strconv.Itoa(*d.Obtained)
		out.Obtained = &obtained
	}
	return out
}
