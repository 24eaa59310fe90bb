package wash

import (
	"context"
	"time"
)

// RecordStore reads fulfillment and return records.
type RecordStore interface {
	LookupFulfillment(ctx context.Context, id string) (FulfillmentHeader, error)
	RecordTypeOf(ctx context.Context, id string) (string, error)
	LoadSourceLines(ctx context.Context, sourceID string) ([]SourceLine, error)
	LoadShipmentLines(ctx context.Context, fulfillmentID string) ([]ShipmentLine, error)
}

// InventorySearch reads average cost and on-hand for an item at a location.
// ErrStockNotFound means the pair has no data.
type InventorySearch interface {
	InventoryState(ctx context.Context, item, location string) (InventoryState, error)
}

// AdjustmentFinder lists memos of adjustments whose memo contains fragment.
type AdjustmentFinder interface {
	FindAdjustmentMemos(ctx context.Context, fragment string) ([]string, error)
}

// AdjustmentWriter persists a wash document.
type AdjustmentWriter interface {
	CreateAdjustment(ctx context.Context, doc AdjustmentDocument) (PostedAdjustment, error)
}

// SettingsProvider returns the current wash settings.
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// Locker serialises check-then-create for one record across processes.
// The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Recorder observes run outcomes.
type Recorder interface {
	ObserveOutcome(reason string, created bool, results int)
}

// Auditor receives audit-level notes in addition to the log.
type Auditor interface {
	Audit(ctx context.Context, recordID, action string, meta map[string]any)
}
