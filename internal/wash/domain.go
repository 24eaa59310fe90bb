package wash

import (
	"errors"

	"github.com/shopspring/decimal"
)

// EventType names the record event that triggered a run.
type EventType string

const (
	EventCreate EventType = "create"
	EventEdit   EventType = "edit"
	EventXEdit  EventType = "xedit"
	EventShip   EventType = "ship"
	EventDelete EventType = "delete"
)

// SourceRecordType is the record type a fulfillment must be created from.
const SourceRecordType = "vendorreturnauthorization"

// Event is an inbound trigger. Only RecordID is trusted; everything else about
// the record is looked up again.
type Event struct {
	Type       EventType `json:"event_type"`
	RecordType string    `json:"record_type"`
	RecordID   string    `json:"record_id"`
}

// FulfillmentHeader is the authoritative view of the triggering shipment.
type FulfillmentHeader struct {
	ID          string
	StatusValue string
	StatusText  string
	CreatedFrom string
	Subsidiary  string
}

// SourceLine is one line of the originating return. Rate keeps the stored text;
// empty means no rate was recorded.
type SourceLine struct {
	LineID        string
	LineUniqueKey string
	Rate          string
}

// ShipmentLine is one line of the triggering shipment.
type ShipmentLine struct {
	Item          string
	Quantity      decimal.Decimal
	Location      string
	OrderLine     string
	LineUniqueKey string
	ItemType      string
}

// InventoryState is a point-in-time read of stock for one item at one location.
type InventoryState struct {
	AverageCost    decimal.Decimal
	QuantityOnHand decimal.Decimal
}

// VarianceResult is the wash required for one qualifying shipment line.
type VarianceResult struct {
	LineIndex      int             `json:"line_index"`
	Item           string          `json:"item"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	VarianceTotal  decimal.Decimal `json:"variance_total"`
	WashUnitCost   decimal.Decimal `json:"wash_unit_cost"`
	TargetLocation string          `json:"target_location"`
}

// AdjustmentLine is one line of a wash document. A nil UnitCost leaves pricing
// to the inventory layer.
type AdjustmentLine struct {
	Item      string
	Location  string
	Quantity  decimal.Decimal
	UnitCost  *decimal.Decimal
	DetailQty decimal.Decimal
}

// AdjustmentDocument is the quantity-neutral wash adjustment. Field order
// mirrors the order the header is written in.
type AdjustmentDocument struct {
	Subsidiary string
	Account    string
	Memo       string
	SourceID   string
	Lines      []AdjustmentLine
}

// DetailIssue reports a line whose inventory detail could not be assigned.
type DetailIssue struct {
	LineIndex int
	Item      string
	Reason    string
}

// PostedAdjustment is what the writer returns after persisting a document.
type PostedAdjustment struct {
	ID           string
	DetailIssues []DetailIssue
}

// Settings carries the two required configuration values.
type Settings struct {
	AdjustmentAccount string
	HoldingLocation   string
}

// Complete reports whether both values are present.
func (s Settings) Complete() bool {
	return s.AdjustmentAccount != "" && s.HoldingLocation != ""
}

// SkipReason explains why a run produced no adjustment.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipDeleteEvent   SkipReason = "delete_event"
	SkipNotFound      SkipReason = "record_not_found"
	SkipNoCreatedFrom SkipReason = "no_created_from"
	SkipConfigMissing SkipReason = "config_missing"
	SkipWrongSource   SkipReason = "wrong_source_type"
	SkipNotShipped    SkipReason = "not_shipped"
	SkipDuplicate     SkipReason = "duplicate"
	SkipNoResults     SkipReason = "no_results"
	SkipFailed        SkipReason = "failed"
)

// LineReason explains why one shipment line was left out.
type LineReason string

const (
	LineNotInventory     LineReason = "not_inventory"
	LineRateUnmatched    LineReason = "rate_unmatched"
	LineStockUnavailable LineReason = "stock_unavailable"
	LineNoOnHand         LineReason = "no_on_hand"
	LineNegligible       LineReason = "negligible"
)

// LineSkip records a shipment line that produced no result.
type LineSkip struct {
	Index  int        `json:"index"`
	Item   string     `json:"item"`
	Reason LineReason `json:"reason"`
}

// Outcome reports what a run decided.
type Outcome struct {
	RecordID     string           `json:"record_id"`
	Created      bool             `json:"created"`
	AdjustmentID string           `json:"adjustment_id,omitempty"`
	Reason       SkipReason       `json:"reason,omitempty"`
	Results      []VarianceResult `json:"results,omitempty"`
	Skipped      []LineSkip       `json:"skipped,omitempty"`
}

var (
	// ErrRecordNotFound indicates the triggering or source record does not exist.
	ErrRecordNotFound = errors.New("wash: record not found")
	// ErrStockNotFound indicates no stock row exists for the item and location.
	ErrStockNotFound = errors.New("wash: inventory state not found")
	// ErrDuplicateAdjustment indicates the store already holds a wash for the record.
	ErrDuplicateAdjustment = errors.New("wash: adjustment already exists for record")
	// ErrLockNotObtained indicates another worker holds the record lock.
	ErrLockNotObtained = errors.New("wash: record lock not obtained")
)
