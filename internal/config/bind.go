package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cligrade/grader/internal/executable"
	"github.com/cligrade/grader/internal/grader"
	"github.com/cligrade/grader/internal/score"
)

// tableColumns are the recognized header cells of a compact test table.
var tableColumns = mapset.NewSet(
	"name", "args", "stdin", "stdout", "stderr", "status", "weight",
)

// BuildGraderConfig resolves target program paths against the input
// section's slots and assembles the engine configuration. Positional paths
// fill slots in order; named entries resolve by alias or default name and
// win over positional ones.
func (f *File) BuildGraderConfig(positional []string, named map[string]string) (*grader.Config, error) {
	slots := f.Input.slotCount()
	names := f.Input.slotNames()

	if len(positional) > slots {
		return nil, fmt.Errorf("%d target programs given but the config declares %d slots", len(positional), slots)
	}
	paths := make([]string, slots)
	copy(paths, positional)
	for name, path := range named {
		idx, ok := names[name]
		if !ok {
			return nil, fmt.Errorf("unknown program name %q", name)
		}
		paths[idx] = path
	}

	artifacts := make([]executable.Artifact, slots)
	for i, path := range paths {
		if path == "" {
			return nil, fmt.Errorf("no target path for program slot %d (%s)", i+1, f.slotDisplayName(i))
		}
		prog, err := executable.NewCompiledProgram(f.slotDisplayName(i), path)
		if err != nil {
			return nil, err
		}
		artifacts[i] = prog
	}

	cfg := &grader.Config{
		Name:   f.Title,
		Author: f.Author,
		Mode:   score.Mode(f.Grading.Mode),
	}
	for i := range f.Sections {
		sec, err := f.Sections[i].bind(i, names, artifacts)
		if err != nil {
			return nil, err
		}
		cfg.Sections = append(cfg.Sections, sec)
	}
	return cfg, nil
}

func (f *File) slotDisplayName(i int) string {
	if i < len(f.Input.Programs) && f.Input.Programs[i].Alias != "" {
		return f.Input.Programs[i].Alias
	}
	return fmt.Sprintf("program%d", i+1)
}

func (s *Section) bind(idx int, names map[string]int, artifacts []executable.Artifact) (*grader.Section, error) {
	title := s.Title
	if title == "" {
		title = fmt.Sprintf("Section %d", idx+1)
	}
	weight := uint32(1)
	if s.Weight != nil {
		weight = *s.Weight
	}

	tests := &grader.UnitTests{
		Envs:             sortedEnv(s.Env),
		InheritParentEnv: s.InheritEnv == nil || *s.InheritEnv,
	}
	for _, file := range s.Files {
		tests.Files = append(tests.Files, grader.FixtureFile{Name: file.Name, Content: file.Content})
	}
	var err error
	if tests.Setup, err = parseCommands(s.Setup); err != nil {
		return nil, fmt.Errorf("section %q setup: %w", title, err)
	}
	if tests.Teardown, err = parseCommands(s.Teardown); err != nil {
		return nil, fmt.Errorf("section %q teardown: %w", title, err)
	}

	for j := range s.Tests {
		ut, err := s.Tests[j].bind(j, names, artifacts)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", title, err)
		}
		tests.Tests = append(tests.Tests, ut)
	}

	return &grader.Section{Name: title, Weight: weight, Tests: tests}, nil
}

func (t *UnitTestDecl) bind(idx int, names map[string]int, artifacts []executable.Artifact) (grader.UnitTest, error) {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("test %d", idx+1)
	}

	// An omitted program targets the first slot; single-target configs
	// should not have to spell out "p1" everywhere.
	slot := 0
	if t.Program != "" {
		i, ok := names[t.Program]
		if !ok {
			return grader.UnitTest{}, fmt.Errorf("test %q: unknown program %q", name, t.Program)
		}
		slot = i
	}

	specs, err := t.assertionSpecs(name)
	if err != nil {
		return grader.UnitTest{}, err
	}
	assertions := make([]grader.Assertion, 0, len(specs))
	for _, spec := range specs {
		a, err := grader.NewAssertion(spec)
		if err != nil {
			return grader.UnitTest{}, fmt.Errorf("test %q, case %q: %w", name, spec.Name, err)
		}
		assertions = append(assertions, a)
	}

	return grader.UnitTest{
		Name:       name,
		Executable: artifacts[slot],
		Assertions: assertions,
	}, nil
}

func (t *UnitTestDecl) assertionSpecs(testName string) ([]grader.AssertionSpec, error) {
	if len(t.Cases) > 0 {
		specs := make([]grader.AssertionSpec, 0, len(t.Cases))
		for i, c := range t.Cases {
			name := c.Name
			if name == "" {
				name = fmt.Sprintf("case %d", i+1)
			}
			specs = append(specs, grader.AssertionSpec{
				Name:   name,
				Args:   strings.Fields(c.Args),
				Stdin:  c.Stdin,
				Stdout: c.Stdout,
				Stderr: c.Stderr,
				Status: c.Status,
				Weight: c.Weight,
			})
		}
		return specs, nil
	}
	return parseTable(testName, t.Table)
}

// parseTable turns a compact table into assertion specs. The first row names
// the columns; every following row is one case, cells matched positionally.
func parseTable(testName string, rows [][]any) ([]grader.AssertionSpec, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("test %q: table needs a header row and at least one case row", testName)
	}

	header := make([]string, 0, len(rows[0]))
	seen := mapset.NewSet[string]()
	for i, cell := range rows[0] {
		col, err := cellString(cell)
		if err != nil {
			return nil, fmt.Errorf("test %q: header cell %d: %w", testName, i+1, err)
		}
		if !tableColumns.Contains(col) {
			return nil, fmt.Errorf("test %q: unknown table column %q", testName, col)
		}
		if !seen.Add(col) {
			return nil, fmt.Errorf("test %q: duplicate table column %q", testName, col)
		}
		header = append(header, col)
	}

	specs := make([]grader.AssertionSpec, 0, len(rows)-1)
	for r, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("test %q: row %d has %d cells, header has %d", testName, r+1, len(row), len(header))
		}
		spec := grader.AssertionSpec{Name: fmt.Sprintf("row %d", r+1)}
		for c, cell := range row {
			if err := fillCell(&spec, header[c], cell); err != nil {
				return nil, fmt.Errorf("test %q: row %d, column %q: %w", testName, r+1, header[c], err)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func fillCell(spec *grader.AssertionSpec, column string, cell any) error {
	switch column {
	case "name":
		s, err := cellString(cell)
		if err != nil {
			return err
		}
		spec.Name = s
	case "args":
		s, err := cellString(cell)
		if err != nil {
			return err
		}
		spec.Args = strings.Fields(s)
	case "stdin":
		s, err := cellString(cell)
		if err != nil {
			return err
		}
		spec.Stdin = &s
	case "stdout":
		s, err := cellString(cell)
		if err != nil {
			return err
		}
		spec.Stdout = &s
	case "stderr":
		s, err := cellString(cell)
		if err != nil {
			return err
		}
		spec.Stderr = &s
	case "status":
		n, err := cellInt(cell)
		if err != nil {
			return err
		}
		spec.Status = &n
	case "weight":
		n, err := cellInt(cell)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("weight must not be negative, got %d", n)
		}
		spec.Weight = uint32(n)
	}
	return nil
}

func cellString(cell any) (string, error) {
	s, ok := cell.(string)
	if !ok {
		return "", fmt.Errorf("want a string, got %T", cell)
	}
	return s, nil
}

// cellInt accepts the integer shapes the two decoders produce: int64 from
// TOML, float64 from JSON.
func cellInt(cell any) (int, error) {
	switch n := cell.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want an integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("want an integer, got %T", cell)
	}
}

func sortedEnv(env map[string]string) []grader.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]grader.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, grader.EnvVar{Key: k, Value: env[k]})
	}
	return out
}

func parseCommands(lines []string) ([]grader.Command, error) {
	out := make([]grader.Command, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("command %d is empty", i+1)
		}
		out = append(out, grader.Command{Program: fields[0], Args: fields[1:]})
	}
	return out, nil
}
