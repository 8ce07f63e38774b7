package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

// Registry holds named adapters and fans fetch and search requests out to
// them concurrently. One source's failure is logged and excluded, never
// fatal to the fan-out: callers receive whatever subset succeeded.
type Registry struct {
	adapters map[string]Adapter
	order    []string
	log      logger.Interface
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Interface) *Registry {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Registry{
		adapters: make(map[string]Adapter),
		log:      log.WithComponent("registry"),
	}
}

// Register adds an adapter, replacing any previous adapter with the same id.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := adapter.ID()
	if _, exists := r.adapters[id]; !exists {
		r.order = append(r.order, id)
	}
	r.adapters[id] = adapter
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", id)
	}
	return adapter, nil
}

// IDs returns the registered source ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// FetchLatest fans a latest-news fetch out to the requested sources
// (default: all registered) and returns the merged records sorted by
// publication time descending.
func (r *Registry) FetchLatest(ctx context.Context, ids []string, count int) ([]domain.RawRecord, error) {
	return r.fanOut(ctx, ids, func(ctx context.Context, adapter Adapter) ([]domain.RawRecord, error) {
		return adapter.FetchLatest(ctx, count)
	})
}

// Search fans a keyword search out to the requested sources (default:
// all registered) and returns the merged records sorted by publication
// time descending.
func (r *Registry) Search(ctx context.Context, keyword string, sinceDays int, ids []string, count int) ([]domain.RawRecord, error) {
	return r.fanOut(ctx, ids, func(ctx context.Context, adapter Adapter) ([]domain.RawRecord, error) {
		return adapter.Search(ctx, keyword, sinceDays, count)
	})
}

// fanOut launches one goroutine per resolved source, joins them all, and
// merges the successful results. This is a join: every task completes
// before fanOut returns.
func (r *Registry) fanOut(
	ctx context.Context,
	ids []string,
	fetch func(ctx context.Context, adapter Adapter) ([]domain.RawRecord, error),
) ([]domain.RawRecord, error) {
	adapters, err := r.resolve(ids)
	if err != nil {
		return nil, err
	}

	type sourceResult struct {
		records []domain.RawRecord
		err     error
	}

	results := make([]sourceResult, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			records, fetchErr := fetch(ctx, adapter)
			results[i] = sourceResult{records: records, err: fetchErr}
		}(i, adapter)
	}
	wg.Wait()

	merged := make([]domain.RawRecord, 0)
	failed := 0
	for i, result := range results {
		if result.err != nil {
			failed++
			r.log.Warn("source fetch failed, excluding from results",
				"source_id", adapters[i].ID(),
				"error", result.err,
			)
			continue
		}
		merged = append(merged, result.records...)
	}

	r.log.Debug("fan-out complete",
		"sources", len(adapters),
		"failed", failed,
		"records", len(merged),
	)

	sortNewestFirst(merged)
	return merged, nil
}

// resolve maps the requested id list to adapters, defaulting to all
// registered sources in registration order.
func (r *Registry) resolve(ids []string) ([]Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.adapters) == 0 {
		return nil, fmt.Errorf("no sources registered")
	}

	if len(ids) == 0 {
		ids = r.order
	}

	adapters := make([]Adapter, 0, len(ids))
	for _, id := range ids {
		adapter, ok := r.adapters[id]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", id)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}
