package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/roadsafe/internal/harness"
	"github.com/roach88/roadsafe/internal/score"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Player string
	Trace  bool
}

// PlayResult is the JSON payload of the play command.
type PlayResult struct {
	Scenario  string          `json:"scenario"`
	Pass      bool            `json:"pass"`
	Errors    []string        `json:"errors,omitempty"`
	Final     harness.State   `json:"final"`
	Trace     []harness.Frame `json:"trace,omitempty"`
	Rating    *score.Rating   `json:"rating,omitempty"`
	Recorded  bool            `json:"recorded"`
	HighScore bool            `json:"new_high_score"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Play a scripted session and record the score",
		Long: `Play a scripted matching or quiz session on a virtual clock.

The finished game is recorded for the player: bests are updated, the score
is added to the player's history and offered to the leaderboard.

Examples:
  roadsafe play ./scenarios/quiz_media_gate.yaml --player Ann
  roadsafe play ./match.yaml --trace --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Player, "player", "", "player name (overrides the scenario's player)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "include every step in the output")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Player != "" {
		scenario.Player = score.NormalizeName(opts.Player)
	}

	cat, err := loadCatalog(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	a, err := openApp(opts.Config)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := harness.Run(scenario,
		harness.WithCatalog(cat),
		harness.WithCoordinator(a.session),
		harness.WithLogger(slog.Default()),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario failed to run", err)
	}

	last := result.Last()
	out := PlayResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Final:    last.State,
	}
	if opts.Trace {
		out.Trace = result.Trace
	}
	if result.Outcome != nil {
		rating := score.Rate(result.Outcome.State.Score)
		out.Rating = &rating
		out.Recorded = result.Outcome.Recorded
		out.HighScore = result.Outcome.NewHighScore
	}

	if err := newFormatter(opts.RootOptions, cmd).Success(out, func(w io.Writer) {
		writePlay(w, out)
	}); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d expectation(s) failed", len(result.Errors)))
	}
	return nil
}

func writePlay(w io.Writer, out PlayResult) {
	if out.Trace != nil {
		for _, f := range out.Trace {
			mark := " "
			if !f.Applied {
				mark = "!"
			}
			fmt.Fprintf(w, "%s %3d  %-8s %-12s %-14s %v\n", mark, f.Step, f.Elapsed, f.Action, f.Arg, f.State["status"])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s: %v\n", out.Scenario, out.Final["status"])
	for _, k := range []string{"total_score", "final_score"} {
		if v, ok := out.Final[k]; ok {
			fmt.Fprintf(w, "Score: %v\n", v)
		}
	}
	if out.Rating != nil {
		fmt.Fprintf(w, "Rating: %d star(s). %s\n", out.Rating.Stars, out.Rating.Message)
		if out.HighScore {
			fmt.Fprintln(w, "New high score!")
		}
		if out.Recorded {
			fmt.Fprintln(w, "Score added to history.")
		}
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "✗ %s\n", e)
	}
}
