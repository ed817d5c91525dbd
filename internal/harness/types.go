package harness

import "github.com/roach88/roadsafe/internal/session"

// State is the observable game state after a step, keyed by field name.
type State map[string]any

// Frame is one trace entry.
type Frame struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Arg     string `json:"arg,omitempty"`
	Applied bool   `json:"applied"`
	Elapsed string `json:"elapsed"`
	State   State  `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Trace holds the start frame followed by one frame per step.
	Trace []Frame `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Outcome is set when the scenario names a player and the game finished.
	Outcome *session.Outcome `json:"outcome,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []Frame{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddFrame appends a frame to the trace.
func (r *Result) AddFrame(f Frame) {
	r.Trace = append(r.Trace, f)
}

// Last returns the most recent frame.
func (r *Result) Last() Frame {
	if len(r.Trace) == 0 {
		return Frame{}
	}
	return r.Trace[len(r.Trace)-1]
}
