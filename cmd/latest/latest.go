// Package latest implements the latest command.
package latest

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

// Command returns the latest command.
func Command() *cobra.Command {
	var (
		sourceIDs []string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Fetch and display the latest articles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			articles, err := deps.Orchestrator.GetLatestNews(cmd.Context(), sourceIDs, count)
			if err != nil {
				return err
			}

			common.RenderArticles(os.Stdout, articles)

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sourceIDs, "sources", nil, "source ids to fetch from (default: all)")
	cmd.Flags().IntVar(&count, "count", 0, "maximum articles to return (default: configured fetch count)")

	return cmd
}
