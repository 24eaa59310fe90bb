package inventory

import (
	"errors"
	"time"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeAdjust indicates adjustment documents.
	TransactionTypeAdjust TransactionType = "ADJUST"
)

// DetailStatus reports what happened to an inventory detail request.
type DetailStatus string

const (
	// DetailNotRequested means the line asked for no detail assignment.
	DetailNotRequested DetailStatus = ""
	// DetailAssigned means the assignment row was written.
	DetailAssigned DetailStatus = "ASSIGNED"
	// DetailNotRequired means the product is not lot/serial tracked.
	DetailNotRequired DetailStatus = "NOT_REQUIRED"
	// DetailFailed means writing the assignment failed; the line still posted.
	DetailFailed DetailStatus = "FAILED"
)

// Balance summarises stock in warehouse per product. Qty is the warehouse's
// own quantity; AvgCost is the product's group average across warehouses.
type Balance struct {
	WarehouseID int64
	ProductID   int64
	Qty         float64
	AvgCost     float64
	UpdatedAt   time.Time
}

// Adjustment is a posted multi-line adjustment document.
type Adjustment struct {
	ID           int64
	Code         string
	SubsidiaryID int64
	AccountID    int64
	Memo         string
	SourceKey    string
	PostedAt     time.Time
	Lines        []AdjustmentLine
}

// AdjustmentLine is a single product movement on an adjustment document.
type AdjustmentLine struct {
	ID          int64
	LineNo      int
	ProductID   int64
	WarehouseID int64
	Qty         float64
	// UnitCost is the booked cost. Outbound lines book the opening group average.
	UnitCost     float64
	BalanceQty   float64
	BalanceCost  float64
	DetailQty    float64
	DetailStatus DetailStatus
	DetailError  string
}

// AdjustmentInput describes a request to post an adjustment document.
type AdjustmentInput struct {
	Code         string
	SubsidiaryID int64
	AccountID    int64
	Memo         string
	// SourceKey is unique across adjustments; empty disables the constraint.
	SourceKey string
	ActorID   int64
	// Revaluation marks a value-only document: each product's lines must net
	// to zero quantity, and inbound lines may carry a negative unit cost.
	Revaluation bool
	Lines       []AdjustmentLineInput
}

// AdjustmentLineInput is one requested movement.
type AdjustmentLineInput struct {
	ProductID   int64
	WarehouseID int64
	Qty         float64
	// UnitCost prices inbound lines. Nil leaves pricing to the document's
	// opening average, which is the only option for outbound lines.
	UnitCost *float64
	// DetailQty requests an inventory detail assignment; zero skips it.
	DetailQty float64
}

// StockCardEntry describes inventory card entry for reports.
type StockCardEntry struct {
	TxCode      string
	TxType      TransactionType
	PostedAt    time.Time
	QtyIn       float64
	QtyOut      float64
	BalanceQty  float64
	UnitCost    float64
	BalanceCost float64
	Note        string
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrInvalidUnitCost indicates invalid cost value.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrOutboundUnitCost indicates an outbound line carrying its own cost.
	ErrOutboundUnitCost = errors.New("inventory: outbound lines are priced at average cost")
	// ErrEmptyAdjustment indicates a document without lines.
	ErrEmptyAdjustment = errors.New("inventory: adjustment requires at least one line")
	// ErrAccountRequired indicates a document without an adjustment account.
	ErrAccountRequired = errors.New("inventory: adjustment account required")
	// ErrDuplicateAdjustment indicates the source key was already posted.
	ErrDuplicateAdjustment = errors.New("inventory: adjustment already posted for source")
	// ErrUnbalancedRevaluation indicates a revaluation that changes quantity.
	ErrUnbalancedRevaluation = errors.New("inventory: revaluation lines must net to zero quantity")
	// ErrBalanceNotFound indicates missing balance row.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
)
