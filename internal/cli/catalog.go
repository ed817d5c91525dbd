package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/roadsafe/internal/catalog"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the sign and question catalog",
		Long: `Validate and print the catalog used by the games.

The embedded catalog is used unless ROADSAFE_CATALOG names a CUE file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid catalog", err)
			}
			return newFormatter(rootOpts, cmd).Success(cat, func(w io.Writer) {
				writeCatalog(w, cat)
			})
		},
	}
	return cmd
}

func writeCatalog(w io.Writer, cat *catalog.Catalog) {
	fmt.Fprintf(w, "Signs (%d):\n", len(cat.Signs))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range cat.Signs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.ID, s.Name, s.Image)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nQuestions (%d):\n", len(cat.Questions))
	for _, q := range cat.Questions {
		media := ""
		if q.HasMedia() {
			media = " [media]"
		}
		fmt.Fprintf(w, "  %s%s %s\n", q.ID, media, q.Prompt)
		for i, opt := range q.Options {
			mark := " "
			if i == q.CorrectIndex {
				mark = "*"
			}
			fmt.Fprintf(w, "    %s %d. %s\n", mark, i+1, opt)
		}
	}
}
