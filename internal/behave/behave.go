// Package behave runs behaviour scenarios: end-to-end grading runs declared
// in a TOML file, each carrying an inline grading config, the target
// programs as shell scripts, and the expected outcome.
package behave

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/cligrade/grader/internal/config"
	"github.com/cligrade/grader/internal/grader"
)

// SpecExpect is the expected outcome of one scenario. Score and section
// scores use the Score string form ("pass", "fail", "5/10"). A non-empty
// Error means the run must fail with an error containing it.
type SpecExpect struct {
	Score         string   `toml:"score"`
	SectionScores []string `toml:"section_scores"`
	Error         string   `toml:"error"`
}

type specScenario struct {
	Description string            `toml:"description"`
	Config      string            `toml:"config"`
	Programs    map[string]string `toml:"programs"`
	Expect      SpecExpect        `toml:"expect"`
}

type specRoot struct {
	Scenarios []specScenario `toml:"scenarios"`
}

// Case is one runnable scenario. Config is the grading specification file
// content; Programs maps program names to shell script sources.
type Case struct {
	Name     string
	Config   string
	Programs map[string]string
	Expect   SpecExpect
}

// Parse reads a behaviour TOML file into runnable cases.
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse behaviour file: %w", err)
	}

	cases := make([]Case, 0, len(root.Scenarios))
	for i, sc := range root.Scenarios {
		if sc.Description == "" {
			return nil, fmt.Errorf("scenario %d is missing a description", i+1)
		}
		if sc.Config == "" {
			return nil, fmt.Errorf("scenario %q is missing a config", sc.Description)
		}
		cases = append(cases, Case{
			Name:     sc.Description,
			Config:   sc.Config,
			Programs: sc.Programs,
			Expect:   sc.Expect,
		})
	}
	return cases, nil
}

// Execute materializes the scenario in a scratch directory (config file plus
// one shell script per program), binds it and runs the grading. The caller
// owns outcome comparison.
func Execute(c Case, dir string) (*grader.GradingResult, error) {
	cfgPath := filepath.Join(dir, "grading.toml")
	if err := os.WriteFile(cfgPath, []byte(c.Config), 0o644); err != nil {
		return nil, fmt.Errorf("write scenario config: %w", err)
	}

	named := make(map[string]string, len(c.Programs))
	for name, src := range c.Programs {
		path := filepath.Join(dir, name+".sh")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+src), 0o755); err != nil {
			return nil, fmt.Errorf("write scenario program %q: %w", name, err)
		}
		named[name] = path
	}

	f, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg, err := f.BuildGraderConfig(nil, named)
	if err != nil {
		return nil, err
	}
	return grader.New(cfg, nil).Run()
}
