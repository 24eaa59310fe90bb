package wash

import (
	"context"
	"errors"
	"log/slog"
)

type stockKey struct {
	item     string
	location string
}

type stockEntry struct {
	state InventoryState
	found bool
}

// StockProvider reads inventory state through a cache that lives for one run.
// Misses are cached too, so a pair is queried at most once.
type StockProvider struct {
	search InventorySearch
	logger *slog.Logger
	cache  map[stockKey]stockEntry
}

func newStockProvider(search InventorySearch, logger *slog.Logger) *StockProvider {
	return &StockProvider{search: search, logger: logger, cache: make(map[stockKey]stockEntry)}
}

// Get returns the state for item at location. ok is false when there is no
// data or the lookup failed.
func (p *StockProvider) Get(ctx context.Context, item, location string) (InventoryState, bool) {
	key := stockKey{item: item, location: location}
	if entry, hit := p.cache[key]; hit {
		return entry.state, entry.found
	}
	state, err := p.search.InventoryState(ctx, item, location)
	entry := stockEntry{state: state, found: err == nil}
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		p.logger.Error("wash: inventory search", slog.String("item", item), slog.String("location", location), slog.Any("error", err))
	}
	p.cache[key] = entry
	return entry.state, entry.found
}
