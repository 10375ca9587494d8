// Package score holds the mode-tagged grading value and its arithmetic.
//
// A Score is only meaningful relative to its Mode: absolute scores are a
// single pass/fail bit combined with logical AND, weighted scores are
// current/max point counters combined with component-wise addition. The two
// must never be mixed; mixing them means the mode was not threaded
// consistently through the grading run, which is a bug in the caller, not a
// runtime condition to recover from.
package score

import (
	"encoding/json"
	"fmt"
)

// Mode selects how scores are produced and combined during a grading run.
type Mode string

const (
	// Absolute grading is all-or-nothing: one failed assertion sinks the
	// whole aggregate to false.
	Absolute Mode = "absolute"
	// Weighted grading accumulates points, current out of max.
	Weighted Mode = "weighted"
)

func (m Mode) Valid() bool {
	return m == Absolute || m == Weighted
}

// Score is a grading value tagged by the mode it was produced under.
// The zero value is not usable; construct through Default, NewAbsolute or
// NewWeighted.
type Score struct {
	mode    Mode
	passed  bool
	current uint32
	max     uint32
}

// Default returns the starting value for an aggregation in the given mode:
// Absolute(false) or Weighted{0, 0}.
func Default(mode Mode) Score {
	switch mode {
	case Absolute:
		return Score{mode: Absolute}
	case Weighted:
		return Score{mode: Weighted}
	default:
		panic(fmt.Sprintf("unknown grading mode %q", mode))
	}
}

func NewAbsolute(passed bool) Score {
	return Score{mode: Absolute, passed: passed}
}

func NewWeighted(current, max uint32) Score {
	return Score{mode: Weighted, current: current, max: max}
}

func (s Score) Mode() Mode { return s.mode }

// Passed reports the pass/fail bit of an absolute score.
func (s Score) Passed() bool { return s.passed }

// Current returns the accumulated points of a weighted score.
func (s Score) Current() uint32 { return s.current }

// Max returns the maximum attainable points of a weighted score.
func (s Score) Max() uint32 { return s.max }

// Full reports whether the score is the best attainable one: passed for
// absolute, current equal to max for weighted.
func (s Score) Full() bool {
	switch s.mode {
	case Absolute:
		return s.passed
	case Weighted:
		return s.current == s.max
	}
	return false
}

// Add combines two scores of the same mode: logical AND for absolute,
// component-wise addition for weighted. Adding scores of different modes is
// a programming error and panics.
func (s Score) Add(other Score) Score {
	if s.mode != other.mode {
		panic(fmt.Sprintf("cannot add %q score to %q score", other.mode, s.mode))
	}
	switch s.mode {
	case Absolute:
		return Score{mode: Absolute, passed: s.passed && other.passed}
	case Weighted:
		return Score{
			mode:    Weighted,
			current: s.current + other.current,
			max:     s.max + other.max,
		}
	default:
		panic(fmt.Sprintf("unknown grading mode %q", s.mode))
	}
}

// Mul scales a weighted score's current and max by weight. Absolute scores
// pass through unchanged for any weight.
func (s Score) Mul(weight uint32) Score {
	if s.mode == Weighted {
		return Score{
			mode:    Weighted,
			current: s.current * weight,
			max:     s.max * weight,
		}
	}
	return s
}

type scoreJSON struct {
	Mode    Mode    `json:"mode"`
	Passed  *bool   `json:"passed,omitempty"`
	Current *uint32 `json:"current,omitempty"`
	Max     *uint32 `json:"max,omitempty"`
}

func (s Score) MarshalJSON() ([]byte, error) {
	out := scoreJSON{Mode: s.mode}
	switch s.mode {
	case Absolute:
		passed := s.passed
		out.Passed = &passed
	case Weighted:
		current, max := s.current, s.max
		out.Current = &current
		out.Max = &max
	}
	return json.Marshal(out)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var in scoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Mode {
	case Absolute:
		*s = Score{mode: Absolute}
		if in.Passed != nil {
			s.passed = *in.Passed
		}
	case Weighted:
		*s = Score{mode: Weighted}
		if in.Current != nil {
			s.current = *in.Current
		}
		if in.Max != nil {
			s.max = *in.Max
		}
	default:
		return fmt.Errorf("unknown grading mode %q", in.Mode)
	}
	return nil
}

func (s Score) String() string {
	switch s.mode {
	case Absolute:
		if s.passed {
			return "pass"
		}
		return "fail"
	case Weighted:
		return fmt.Sprintf("%d/%d", s.current, s.max)
	}
	return "invalid"
}
