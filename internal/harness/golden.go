package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file form of a scenario trace.
type TraceSnapshot struct {
	Name  string  `json:"name"`
	Game  string  `json:"game"`
	Trace []Frame `json:"trace"`
}

// MarshalTrace renders the trace of result as indented JSON with a trailing
// newline. State keys are sorted, so equal traces render identically.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		Name:  scenario.Name,
		Game:  scenario.Game,
		Trace: result.Trace,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against
// {fixtureDir}/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, fixtureDir string, opts ...Option) *Result {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		t.Fatalf("run %s: %v", scenario.Name, err)
	}
	AssertGolden(t, scenario, result, fixtureDir)
	return result
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result, fixtureDir string) {
	t.Helper()

	data, err := MarshalTrace(scenario, result)
	if err != nil {
		t.Fatal(err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
