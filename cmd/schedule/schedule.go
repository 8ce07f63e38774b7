// Package schedule implements the schedule command: periodic collection
// passes driven by a cron spec.
package schedule

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

const passTimeout = 10 * time.Minute

// Command returns the schedule command.
func Command() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run collection passes on a cron schedule",
		Long: `Schedule runs a collection pass over all configured sources on a cron
schedule until interrupted. The schedule defaults to the configured
crawl.schedule value.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			if spec == "" {
				spec = deps.Config.Crawl.Schedule
			}

			keywords := deps.Config.Crawl.Keywords
			symbols := deps.Config.Crawl.Symbols
			if len(keywords) == 0 && len(symbols) == 0 {
				return fmt.Errorf("no collection keys configured: set crawl.keywords or crawl.symbols")
			}

			runner := cron.New()
			job := newCollectJob(deps, keywords, symbols)

			if _, err := runner.AddJob(spec, job); err != nil {
				return fmt.Errorf("invalid cron spec %q: %w", spec, err)
			}

			deps.Logger.Info("scheduler started", "spec", spec, "keywords", len(keywords), "symbols", len(symbols))
			runner.Start()

			// Run one pass immediately rather than waiting for the first tick.
			go job.Run()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			deps.Logger.Info("scheduler stopping")
			stopCtx := runner.Stop()
			<-stopCtx.Done()

			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron spec (default: configured crawl.schedule)")

	return cmd
}
