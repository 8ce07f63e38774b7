package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/newswire/newswire/cmd/common"
)

// collectJob is the cron job that runs one collection pass. Overlapping
// runs are skipped: a pass that outlives the tick interval must not
// stack a second pass on top of itself.
type collectJob struct {
	deps     *common.Deps
	keywords []string
	symbols  []string
	running  atomic.Bool
}

func newCollectJob(deps *common.Deps, keywords, symbols []string) *collectJob {
	return &collectJob{deps: deps, keywords: keywords, symbols: symbols}
}

// Run implements cron.Job.
func (j *collectJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		j.deps.Logger.Warn("skipping collection pass, previous pass still running")

		return
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
	defer cancel()

	start := time.Now()

	stats, err := j.deps.Orchestrator.CollectFromAllSources(ctx, j.keywords, j.symbols, 0)
	if err != nil {
		j.deps.Logger.Error("collection pass interrupted", "error", err, "duration", time.Since(start))

		return
	}

	total := 0
	for _, n := range stats {
		total += n
	}

	j.deps.Logger.Info("collection pass complete", "articles", total, "keys", len(stats), "duration", time.Since(start))
}
