// Package search implements the search command.
package search

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

// Command returns the search command.
func Command() *cobra.Command {
	var (
		sourceIDs []string
		count     int
		days      int
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search articles by keyword",
		Long: `Search returns stored articles matching the keyword. With --force the
sources are crawled again even when stored articles satisfy the query.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			articles, err := deps.Orchestrator.SearchNews(cmd.Context(), args[0], days, sourceIDs, count, force)
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
