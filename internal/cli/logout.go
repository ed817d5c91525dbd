package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the current player",
		Long: `Sign the player out and clear all local data.

Pending leaderboard submissions are awaited first. Game state, every score
history and the local leaderboard cache are then removed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts.Config)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.session.Logout(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "logout failed", err)
			}
			return newFormatter(rootOpts, cmd).Success(state, func(w io.Writer) {
				fmt.Fprintln(w, "Logged out.")
			})
		},
	}
	return cmd
}
