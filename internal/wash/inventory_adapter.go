package wash

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/costwash/internal/inventory"
)

// InventoryService is the part of inventory.Service the adapter needs.
type InventoryService interface {
	GetBalance(ctx context.Context, warehouseID, productID int64) (inventory.Balance, error)
	SearchAdjustmentsByMemo(ctx context.Context, fragment string) ([]inventory.Adjustment, error)
	PostAdjustmentDocument(ctx context.Context, input inventory.AdjustmentInput) (inventory.Adjustment, error)
}

// InventoryAdapter serves InventorySearch, AdjustmentFinder and
// AdjustmentWriter from the inventory service.
type InventoryAdapter struct {
	service InventoryService
}

// NewInventoryAdapter creates a new inventory adapter.
func NewInventoryAdapter(service InventoryService) *InventoryAdapter {
	return &InventoryAdapter{service: service}
}

// InventoryState reads the balance for item at location.
func (a *InventoryAdapter) InventoryState(ctx context.Context, item, location string) (InventoryState, error) {
	productID, err := parseID("item", item)
	if err != nil {
		return InventoryState{}, err
	}
	warehouseID, err := parseID("location", location)
	if err != nil {
		return InventoryState{}, err
	}
	bal, err := a.service.GetBalance(ctx, warehouseID, productID)
	if err != nil {
		if errors.Is(err, inventory.ErrBalanceNotFound) {
			return InventoryState{}, ErrStockNotFound
		}
		return InventoryState{}, fmt.Errorf("wash: inventory balance: %w", err)
	}
	return InventoryState{
		AverageCost:    decimal.NewFromFloat(bal.AvgCost),
		QuantityOnHand: decimal.NewFromFloat(bal.Qty),
	}, nil
}

// FindAdjustmentMemos lists memos of adjustments containing fragment.
func (a *InventoryAdapter) FindAdjustmentMemos(ctx context.Context, fragment string) ([]string, error) {
	adjustments, err := a.service.SearchAdjustmentsByMemo(ctx, fragment)
	if err != nil {
		return nil, fmt.Errorf("wash: search adjustments: %w", err)
	}
	memos := make([]string, 0, len(adjustments))
	for _, adj := range adjustments {
		memos = append(memos, adj.Memo)
	}
	return memos, nil
}

// CreateAdjustment posts doc as one inventory adjustment keyed by its source id.
func (a *InventoryAdapter) CreateAdjustment(ctx context.Context, doc AdjustmentDocument) (PostedAdjustment, error) {
	input, err := toInventoryInput(doc)
	if err != nil {
		return PostedAdjustment{}, err
	}
	adj, err := a.service.PostAdjustmentDocument(ctx, input)
	if err != nil {
		if errors.Is(err, inventory.ErrDuplicateAdjustment) {
			return PostedAdjustment{}, ErrDuplicateAdjustment
		}
		return PostedAdjustment{}, err
	}
	posted := PostedAdjustment{ID: strconv.FormatInt(adj.ID, 10)}
	for i, line := range adj.Lines {
		if line.DetailStatus != inventory.DetailFailed {
			continue
		}
		posted.DetailIssues = append(posted.DetailIssues, DetailIssue{
			LineIndex: i,
			Item:      strconv.FormatInt(line.ProductID, 10),
			Reason:    line.DetailError,
		})
	}
	return posted, nil
}

// AdjustmentCode derives a stable document code from the source id.
func AdjustmentCode(sourceID string) string {
	id := uuid.NewSHA1(uuid.Nil, []byte("WASH:"+sourceID))
	return "WASH-" + strings.ToUpper(id.String()[:8])
}

func toInventoryInput(doc AdjustmentDocument) (inventory.AdjustmentInput, error) {
	account, err := parseID("account", doc.Account)
	if err != nil {
		return inventory.AdjustmentInput{}, err
	}
	var subsidiary int64
	if doc.Subsidiary != "" {
		if subsidiary, err = parseID("subsidiary", doc.Subsidiary); err != nil {
			return inventory.AdjustmentInput{}, err
		}
	}
	input := inventory.AdjustmentInput{
		Code:         AdjustmentCode(doc.SourceID),
		SubsidiaryID: subsidiary,
		AccountID:    account,
		Memo:         doc.Memo,
		SourceKey:    doc.SourceID,
		Revaluation:  true,
		Lines:        make([]inventory.AdjustmentLineInput, 0, len(doc.Lines)),
	}
	for i, line := range doc.Lines {
		productID, err := parseID("item", line.Item)
		if err != nil {
			return inventory.AdjustmentInput{}, fmt.Errorf("line %d: %w", i, err)
		}
		warehouseID, err := parseID("location", line.Location)
		if err != nil {
			return inventory.AdjustmentInput{}, fmt.Errorf("line %d: %w", i, err)
		}
		in := inventory.AdjustmentLineInput{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Qty:         line.Quantity.InexactFloat64(),
			DetailQty:   line.DetailQty.InexactFloat64(),
		}
		if line.UnitCost != nil {
			cost := line.UnitCost.InexactFloat64()
			in.UnitCost = &cost
		}
		input.Lines = append(input.Lines, in)
	}
	return input, nil
}

func parseID(field, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("wash: invalid %s id %q", field, value)
	}
	return id, nil
}
