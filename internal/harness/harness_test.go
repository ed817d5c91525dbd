package harness

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goldenDir = "testdata/scenarios/golden"

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result := RunWithGolden(t, scenario, goldenDir)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_RecordsOutcomeForPlayer(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/match_two_parts.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result.Outcome)

	assert.True(t, result.Outcome.Recorded)
	assert.Equal(t, "Ann", result.Outcome.Entry.PlayerName)
	assert.Equal(t, 364, result.Outcome.Entry.Score)
	assert.True(t, Epoch.Add(36*time.Second).Equal(result.Outcome.Entry.Timestamp))
}

func TestRun_UnfinishedGameIsNotRecorded(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unfinished
game: quiz
player: Ann
steps:
  - select: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Nil(t, result.Outcome)
	assert.Len(t, result.Trace, 2)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectations
game: quiz
config:
  questions: 1
steps:
  - select: 1
    expect:
      running_score: 100
      no_such_field: 1
final:
  finished: true
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `unknown field "no_such_field"`)
	assert.Contains(t, result.Errors[1], "running_score: expected 100, got -50")
	assert.True(t, strings.HasPrefix(result.Errors[2], "final: finished"))
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "game: quiz\nsteps:\n  - select: 0\n",
			want: "name is required",
		},
		{
			name: "unknown game",
			yaml: "name: x\ngame: chess\nsteps:\n  - advance: 1s\n",
			want: "game must be",
		},
		{
			name: "no steps",
			yaml: "name: x\ngame: quiz\n",
			want: "steps list is required",
		},
		{
			name: "two actions in one step",
			yaml: "name: x\ngame: quiz\nsteps:\n  - select: 0\n    advance: 1s\n",
			want: "exactly one action",
		},
		{
			name: "reveal in quiz",
			yaml: "name: x\ngame: quiz\nsteps:\n  - reveal: sign-1\n",
			want: "reveal only applies",
		},
		{
			name: "select in match",
			yaml: "name: x\ngame: match\nsteps:\n  - select: 1\n",
			want: "select only applies",
		},
		{
			name: "bad duration",
			yaml: "name: x\ngame: match\nsteps:\n  - advance: soon\n",
			want: "advance",
		},
		{
			name: "quiz with pairs",
			yaml: "name: x\ngame: quiz\nconfig:\n  pairs: 2\nsteps:\n  - select: 0\n",
			want: "only apply to the match game",
		},
		{
			name: "unknown field",
			yaml: "name: x\ngame: quiz\nstep:\n  - select: 0\n",
			want: "failed to parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(3, 3))
	assert.True(t, valuesEqual([]int{264, 100}, []any{264, 100}))
	assert.True(t, valuesEqual([]string{}, []any{}))
	assert.True(t, valuesEqual("active", "active"))
	assert.False(t, valuesEqual(3, "3"))
	assert.False(t, valuesEqual(nil, 0))
}
