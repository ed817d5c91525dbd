package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/roadsafe/internal/leaderboard"
	"github.com/roach88/roadsafe/internal/score"
)

// LeaderboardOptions holds flags for the leaderboard command.
type LeaderboardOptions struct {
	*RootOptions
	Level    string
	Personal string
	Flush    bool
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LeaderboardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		Long: `Show the global leaderboard, or one player's own scores.

The global board is read from the leaderboard service and merged with
scores that have not reached it yet. When the service is unreachable the
board is built from the local cache and marked degraded.

Examples:
  roadsafe leaderboard
  roadsafe leaderboard --level 2
  roadsafe leaderboard --personal Ann
  roadsafe leaderboard --flush`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Level, "level", "combined", "board to show (1|2|combined)")
	cmd.Flags().StringVar(&opts.Personal, "personal", "", "show this player's history instead of the global board")
	cmd.Flags().BoolVar(&opts.Flush, "flush", false, "resubmit locally cached scores before reading")

	return cmd
}

func runLeaderboard(opts *LeaderboardOptions, cmd *cobra.Command) error {
	filter, err := leaderboard.ParseFilter(opts.Level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --level", err)
	}

	a, err := openApp(opts.Config)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if opts.Flush {
		res, err := a.session.Flush(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "flush failed", err)
		}
		if res.Remaining > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d score(s) still waiting for the leaderboard service\n", res.Remaining)
		}
	}

	var view leaderboard.View
	if cmd.Flags().Changed("personal") {
		view, err = a.session.Personal(ctx, opts.Personal, filter)
	} else {
		view, err = a.session.Leaderboard(ctx, filter)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read leaderboard", err)
	}

	return newFormatter(opts.RootOptions, cmd).Success(view, func(w io.Writer) {
		writeView(w, view)
	})
}

// writeView renders a view as an aligned table.
func writeView(w io.Writer, view leaderboard.View) {
	if view.Degraded {
		fmt.Fprintln(w, "(offline: showing locally cached scores)")
	}
	if len(view.Rows) == 0 {
		fmt.Fprintln(w, "No scores yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if view.Filter == leaderboard.FilterCombined {
		fmt.Fprintln(tw, "RANK\tPLAYER\tLEVEL 1\tLEVEL 2\tTOTAL")
		for _, r := range view.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", r.Rank, r.PlayerName, r.Level1Score, r.Level2Score, r.Score)
		}
	} else {
		fmt.Fprintln(tw, "RANK\tPLAYER\tSCORE\tDATE")
		for _, r := range view.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.Rank, r.PlayerName, r.Score, formatDate(r.Timestamp))
		}
	}
	tw.Flush()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <player> <level> <score>",
		Short: "Submit a score to the leaderboard",
		Long: `Offer a score to the leaderboard service.

The service keeps a score only when it beats the player's best for the
level. Scores that cannot be delivered are kept locally and resent by
"roadsafe leaderboard --flush".

Example:
  roadsafe submit Ann 1 950`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runSubmit(opts *RootOptions, cmd *cobra.Command, args []string) error {
	level, err := score.ParseLevel(args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid level", err)
	}
	points, err := strconv.Atoi(args[2])
	if err != nil || points <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid score %q: must be a positive integer", args[2]))
	}

	a, err := openApp(opts.Config)
	if err != nil {
		return err
	}
	defer a.Close()

	e := score.Entry{
		ID:         score.UUIDv7Generator{}.Generate(),
		PlayerName: args[0],
		Score:      points,
		Level:      level,
		Timestamp:  time.Now().UTC(),
	}
	res, err := a.board.Submit(cmd.Context(), e)
	if err != nil {
		return WrapExitError(ExitCommandError, "submit failed", err)
	}

	return newFormatter(opts, cmd).Success(res, func(w io.Writer) {
		switch {
		case res.Offline:
			fmt.Fprintln(w, "Leaderboard unreachable; score saved locally for later.")
		case res.Accepted:
			fmt.Fprintln(w, "New high score recorded.")
		default:
			fmt.Fprintln(w, "Score not high enough for the leaderboard.")
		}
	})
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [player]",
		Short: "Show a player's score history",
		Long: `List a player's recorded scores, newest first.

With no argument the current player is used. When no player is signed
in, the players with a recorded history are listed instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command, args []string) error {
	a, err := openApp(opts.Config)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	player := ""
	if len(args) == 1 {
		player = args[0]
	} else {
		st, err := a.records.State(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read game state", err)
		}
		player = st.PlayerName
	}

	if player == "" {
		players, err := a.records.Players(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list players", err)
		}
		return out.Success(players, func(w io.Writer) {
			if len(players) == 0 {
				fmt.Fprintln(w, "No players recorded.")
				return
			}
			fmt.Fprintln(w, "Players:")
			for _, p := range players {
				fmt.Fprintf(w, "  %s\n", p)
			}
		})
	}

	entries, err := a.records.History(ctx, player)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read history", err)
	}
	if entries == nil {
		entries = []score.Entry{}
	}
	return out.Success(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintf(w, "No scores recorded for %s.\n", player)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tLEVEL\tSCORE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", formatDate(e.Timestamp), int(e.Level), e.Score)
		}
		tw.Flush()
	})
}
