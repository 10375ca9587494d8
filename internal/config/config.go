// Package config reads the declarative grading specification from a JSON or
// TOML file and binds it, together with the target program paths supplied on
// the command line, into the engine's configuration object graph.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/cligrade/grader/internal/score"
)

// Logging verbosity levels of a grading run.
const (
	LoggingSilent  = "silent"
	LoggingNormal  = "normal"
	LoggingVerbose = "verbose"
)

// Report output destinations.
const (
	OutputStdout = "stdout"
	OutputTxt    = "txt"
	OutputJSON   = "json"
)

// File is the root of a grading specification file.
type File struct {
	Title    string    `json:"title" toml:"title"`
	Author   *string   `json:"author,omitempty" toml:"author,omitempty"`
	Logging  string    `json:"logging,omitempty" toml:"logging,omitempty"`
	Grading  Grading   `json:"grading,omitempty" toml:"grading,omitempty"`
	Report   Report    `json:"report,omitempty" toml:"report,omitempty"`
	Input    Input     `json:"input,omitempty" toml:"input,omitempty"`
	Sections []Section `json:"sections" toml:"sections"`
}

// Grading selects how scores are produced and combined.
type Grading struct {
	Mode string `json:"mode,omitempty" toml:"mode,omitempty"`
}

// Report controls how the grading result is rendered after the run.
type Report struct {
	Verbose bool   `json:"verbose,omitempty" toml:"verbose,omitempty"`
	Output  string `json:"output,omitempty" toml:"output,omitempty"`
	Path    string `json:"path,omitempty" toml:"path,omitempty"`
}

// Input declares the ordered target program slots. Slot N answers to the
// names "program<N>" and "p<N>" plus its optional alias.
type Input struct {
	Programs []Program `json:"programs,omitempty" toml:"programs,omitempty"`
}

type Program struct {
	Alias string `json:"alias,omitempty" toml:"alias,omitempty"`
}

// Section is one weighted group of unit tests sharing an environment,
// fixture files and setup/teardown commands. Weight is a pointer so an
// explicit zero stays distinguishable from an omitted one.
type Section struct {
	Title      string            `json:"title,omitempty" toml:"title,omitempty"`
	Weight     *uint32           `json:"weight,omitempty" toml:"weight,omitempty"`
	Env        map[string]string `json:"env,omitempty" toml:"env,omitempty"`
	InheritEnv *bool             `json:"inherit_env,omitempty" toml:"inherit_env,omitempty"`
	Files      []FixtureFile     `json:"files,omitempty" toml:"files,omitempty"`
	Setup      []string          `json:"setup,omitempty" toml:"setup,omitempty"`
	Teardown   []string          `json:"teardown,omitempty" toml:"teardown,omitempty"`
	Tests      []UnitTestDecl    `json:"tests" toml:"tests"`
}

type FixtureFile struct {
	Name    string `json:"name" toml:"name"`
	Content string `json:"content" toml:"content"`
}

// UnitTestDecl declares one unit test: the program it targets and its cases,
// either spelled out one by one or as a compact table whose first row names
// the columns.
type UnitTestDecl struct {
	Name    string  `json:"name,omitempty" toml:"name,omitempty"`
	Program string  `json:"program,omitempty" toml:"program,omitempty"`
	Cases   []Case  `json:"cases,omitempty" toml:"cases,omitempty"`
	Table   [][]any `json:"table,omitempty" toml:"table,omitempty"`
}

// Case is one detailed assertion declaration. Nil expectation fields mean
// "not asserted"; Args is split on whitespace.
type Case struct {
	Name   string  `json:"name,omitempty" toml:"name,omitempty"`
	Args   string  `json:"args,omitempty" toml:"args,omitempty"`
	Stdin  *string `json:"stdin,omitempty" toml:"stdin,omitempty"`
	Stdout *string `json:"stdout,omitempty" toml:"stdout,omitempty"`
	Stderr *string `json:"stderr,omitempty" toml:"stderr,omitempty"`
	Status *int    `json:"status,omitempty" toml:"status,omitempty"`
	Weight uint32  `json:"weight,omitempty" toml:"weight,omitempty"`
}

// Load reads and validates a grading specification. The format is picked by
// extension: .json or .toml. Unknown keys are rejected in both formats so a
// typo cannot silently drop an expectation.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .json or .toml)", ext)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}

	switch f.Logging {
	case "":
		f.Logging = LoggingNormal
	case LoggingSilent, LoggingNormal, LoggingVerbose:
	default:
		return fmt.Errorf("unknown logging mode %q", f.Logging)
	}

	switch f.Grading.Mode {
	case "":
		f.Grading.Mode = string(score.Weighted)
	default:
		if !score.Mode(f.Grading.Mode).Valid() {
			return fmt.Errorf("unknown grading mode %q", f.Grading.Mode)
		}
	}

	switch f.Report.Output {
	case "":
		f.Report.Output = OutputStdout
	case OutputStdout, OutputTxt, OutputJSON:
	default:
		return fmt.Errorf("unknown report output %q", f.Report.Output)
	}

	if err := f.Input.validate(); err != nil {
		return err
	}

	if len(f.Sections) == 0 {
		return fmt.Errorf("at least one test section is required")
	}
	for i := range f.Sections {
		if err := f.Sections[i].validate(i); err != nil {
			return err
		}
	}
	return nil
}

// validate rejects aliases that collide with each other or with any slot's
// default names.
func (in *Input) validate() error {
	reserved := mapset.NewSet[string]()
	for i := range in.slotCount() {
		reserved.Add(fmt.Sprintf("program%d", i+1))
		reserved.Add(fmt.Sprintf("p%d", i+1))
	}
	seen := mapset.NewSet[string]()
	for i, p := range in.Programs {
		if p.Alias == "" {
			continue
		}
		if reserved.Contains(p.Alias) {
			return fmt.Errorf("program slot %d: alias %q collides with a default program name", i+1, p.Alias)
		}
		if !seen.Add(p.Alias) {
			return fmt.Errorf("program slot %d: duplicate alias %q", i+1, p.Alias)
		}
	}
	return nil
}

// slotCount is at least one: a config without an input section still grades
// a single target.
func (in *Input) slotCount() int {
	if len(in.Programs) == 0 {
		return 1
	}
	return len(in.Programs)
}

// slotNames maps every valid program name to its zero-based slot index.
func (in *Input) slotNames() map[string]int {
	names := make(map[string]int)
	for i := range in.slotCount() {
		names[fmt.Sprintf("program%d", i+1)] = i
		names[fmt.Sprintf("p%d", i+1)] = i
	}
	for i, p := range in.Programs {
		if p.Alias != "" {
			names[p.Alias] = i
		}
	}
	return names
}

func (s *Section) validate(idx int) error {
	if len(s.Tests) == 0 {
		return fmt.Errorf("section %d: at least one unit test is required", idx+1)
	}
	for j, t := range s.Tests {
		hasCases, hasTable := len(t.Cases) > 0, len(t.Table) > 0
		if hasCases == hasTable {
			return fmt.Errorf("section %d, test %d: declare exactly one of cases or table", idx+1, j+1)
		}
	}
	return nil
}
