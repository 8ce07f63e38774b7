// Package crawl implements the crawl command: one collection pass over
// every configured source.
package crawl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var (
		keywords []string
		symbols  []string
		limit    int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one collection pass over all configured sources",
		Long: `Crawl fetches articles for each keyword and symbol from every configured
source, deduplicates them, and stores the results. Keys default to the
configured crawl keywords and symbols.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := deps.Close(); closeErr != nil {
					deps.Logger.Error("closing dependencies", "error", closeErr)
				}
			}()

			if len(keywords) == 0 && len(symbols) == 0 {
				keywords = deps.Config.Crawl.Keywords
				symbols = deps.Config.Crawl.Symbols
			}
			if len(keywords) == 0 && len(symbols) == 0 {
				return fmt.Errorf("no collection keys: pass --keywords/--symbols or configure crawl.keywords")
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			deps.Logger.Info("starting collection pass",
				"keywords", len(keywords), "symbols", len(symbols), "sources", len(deps.Registry.IDs()))

			stats, err := deps.Orchestrator.CollectFromAllSources(ctx, keywords, symbols, limit)
			keys := append(append([]string{}, keywords...), symbols...)
			common.RenderStats(os.Stdout, stats, keys)
			if err != nil {
				return fmt.Errorf("collection pass interrupted: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "keywords to collect (default: configured crawl.keywords)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "ticker symbols to collect (default: configured crawl.symbols)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum articles per key (default: configured fetch count)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the pass (0 = none)")

	return cmd
}
