// Package symbol implements the symbol command.
package symbol

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

// Command returns the symbol command.
func Command() *cobra.Command {
	var (
		sourceIDs []string
		count     int
		days      int
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "symbol <ticker>",
		Short: "Fetch articles about a ticker symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			ticker := strings.ToUpper(args[0])

			articles, err := deps.Orchestrator.GetNewsBySymbol(cmd.Context(), ticker, days, sourceIDs, count, force)
			if err != nil {
				return err
			}

			common.RenderArticles(os.Stdout, articles)

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sourceIDs, "sources", nil, "source ids to search (default: all)")
	cmd.Flags().IntVar(&count, "count", 0, "maximum articles to return (default: configured fetch count)")
	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days (default: configured window)")
	cmd.Flags().BoolVar(&force, "force", false, "crawl the sources even when stored results exist")

	return cmd
}
