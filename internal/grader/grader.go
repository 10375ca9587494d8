// Package grader is the grading engine: it executes target programs against
// declared assertions inside isolated per-assertion fixtures and aggregates
// the outcomes into a hierarchical, mode-tagged score.
//
// The engine consumes an already-validated configuration object graph and
// produces an immutable, serializable result tree. Configuration parsing,
// executable discovery and report rendering live elsewhere.
package grader

import (
	"fmt"

	"github.com/cligrade/grader/internal/score"
	"github.com/google/uuid"
)

// Tests is one test modality a grading section can wrap. Unit tests are the
// only modality today; integration and performance modalities are expected
// to implement this same contract so the aggregation code never changes.
type Tests interface {
	Run(mode score.Mode, gath EvalResGatherer) (TestsResult, error)
}

// TestsResult is the modality-agnostic view of a modality's outcome.
type TestsResult interface {
	Total() score.Score
}

// Section is a named, weighted group of tests contributing to the overall
// grade.
type Section struct {
	Name   string
	Weight uint32
	Tests  Tests
}

// SectionResult carries a section's already-weighted score.
type SectionResult struct {
	Name        string      `json:"name"`
	Score       score.Score `json:"score"`
	TestResults TestsResult `json:"test_results"`
}

// run delegates to the section's modality and scales (not combines) the
// resulting score by the section weight. Scaling happens exactly once, here;
// combination across sections is the grader's job.
func (s *Section) run(mode score.Mode, gath EvalResGatherer) (*SectionResult, error) {
	gath.StartSection(s.Name)
	tr, err := s.Tests.Run(mode, gath)
	if err != nil {
		return nil, err
	}
	res := &SectionResult{
		Name:        s.Name,
		Score:       tr.Total().Mul(s.Weight),
		TestResults: tr,
	}
	gath.FinishSection(s.Name, res.Score)
	return res, nil
}

// Config is the top-level grading specification: an ordered collection of
// sections graded under one mode. Read-only during a run.
type Config struct {
	Name     string
	Author   *string
	Mode     score.Mode
	Sections []*Section
}

// GradingResult is the run's final product: plain serializable data, never
// mutated after the run completes.
type GradingResult struct {
	RunUuid        string           `json:"run_uuid"`
	Name           string           `json:"name"`
	Author         *string          `json:"author,omitempty"`
	Score          score.Score      `json:"score"`
	SectionResults []*SectionResult `json:"section_results"`
}

// Grader drives a grading run over a config.
type Grader struct {
	config *Config
	gath   EvalResGatherer
}

// New builds a grader. A nil gatherer falls back to NoopGatherer.
func New(config *Config, gath EvalResGatherer) *Grader {
	if gath == nil {
		gath = NoopGatherer{}
	}
	return &Grader{config: config, gath: gath}
}

// Run executes every section in declared order and combines each section's
// already-weighted score into the overall total. A fixture failure aborts
// the run; graded failures do not.
func (g *Grader) Run() (*GradingResult, error) {
	result := &GradingResult{
		RunUuid: uuid.NewString(),
		Name:    g.config.Name,
		Author:  g.config.Author,
		Score:   score.Default(g.config.Mode),
	}
	g.gath.StartGrading(result.RunUuid, result.Name)
	for _, sec := range g.config.Sections {
		secRes, err := sec.run(g.config.Mode, g.gath)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.Name, err)
		}
		result.Score = result.Score.Add(secRes.Score)
		result.SectionResults = append(result.SectionResults, secRes)
	}
	g.gath.FinishGrading(result.Score)
	return result, nil
}
