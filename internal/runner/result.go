package runner

import (
	"time"

	"github.com/pengelbrecht/tally/internal/feature"
)

// Status is the outcome of a step or scenario.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusUndefined Status = "undefined"
	StatusAmbiguous Status = "ambiguous"
	StatusSkipped   Status = "skipped"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Keyword  string        `json:"keyword"`
	Text     string        `json:"text"`
	Line     int           `json:"line"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Snippet  string        `json:"snippet,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name     string        `json:"name"`
	Line     int           `json:"line"`
	Tags     []string      `json:"tags,omitempty"`
	Status   Status        `json:"status"`
	Steps    []StepResult  `json:"steps"`
	Value    int           `json:"value"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed returns the first step that did not pass or get skipped.
func (s ScenarioResult) Failed() (StepResult, bool) {
	for _, st := range s.Steps {
		if st.Status != StatusPassed && st.Status != StatusSkipped {
			return st, true
		}
	}
	return StepResult{}, false
}

// FeatureResult groups scenario results by file.
type FeatureResult struct {
	Path      string           `json:"path"`
	Name      string           `json:"name"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// Summary counts scenario and step outcomes.
type Summary struct {
	Scenarios int `json:"scenarios"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Undefined int `json:"undefined"`
	Ambiguous int `json:"ambiguous"`
	Skipped   int `json:"skipped"`
	Steps     int `json:"steps"`
}

// OK reports whether every scenario passed.
func (s Summary) OK() bool {
	return s.Scenarios == s.Passed
}

func (s *Summary) add(r ScenarioResult) {
	s.Scenarios++
	s.Steps += len(r.Steps)
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusUndefined:
		s.Undefined++
	case StatusAmbiguous:
		s.Ambiguous++
	case StatusSkipped:
		s.Skipped++
	}
}

// Result is the outcome of a whole run.
type Result struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration_ns"`
	Features  []FeatureResult `json:"features"`
	Summary   Summary         `json:"summary"`
}

func newStepResult(st feature.Step) StepResult {
	return StepResult{Keyword: st.Keyword, Text: st.Text, Line: st.Line, Status: StatusSkipped}
}
