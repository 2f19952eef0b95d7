package svgaspect

import (
	"strconv"
	"time"
)

// Outcome is the outcome of normalizing a single file.
type Outcome int

// Outcome values.
const (
	Skipped Outcome = iota // already has the attribute
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Updated:
		return "updated"
	case Failed:
		return "error"
	}
	return "Invalid(" + strconv.Itoa(int(o)) + ")"
}

// Result is the result of normalizing a single file.
type Result struct {
	Name     string
	Outcome  Outcome
	Err      error
	InSize   int
	OutSize  int
	Duration time.Duration
}

// Fail returns a copy of r with a Failed outcome and the given error.
func (r Result) Fail(err error) Result {
	r.Outcome = Failed
	r.Err = err
	return r
}

// Summary counts the outcomes of a run.
type Summary struct {
	Updated int
	Skipped int
	Errors  int
	Total   int
}

// Add counts r.
func (s *Summary) Add(r Result) {
	switch r.Outcome {
	case Updated:
		s.Updated++
	case Skipped:
		s.Skipped++
	default:
		s.Errors++
	}
	s.Total++
}
