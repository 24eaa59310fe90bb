package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/odyssey-erp/costwash/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error)
	FindAdjustmentsByMemo(ctx context.Context, fragment string, limit int) ([]Adjustment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const memoSearchLimit = 50

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	allowNeg bool
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// GetBalance returns the current balance without locking it.
func (s *Service) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	if warehouseID == 0 || productID == 0 {
		return Balance{}, errors.New("inventory: warehouse and product required")
	}
	return s.repo.GetBalance(ctx, warehouseID, productID)
}

// SearchAdjustmentsByMemo lists adjustment headers whose memo contains fragment.
func (s *Service) SearchAdjustmentsByMemo(ctx context.Context, fragment string) ([]Adjustment, error) {
	if fragment == "" {
		return nil, errors.New("inventory: memo fragment required")
	}
	return s.repo.FindAdjustmentsByMemo(ctx, fragment, memoSearchLimit)
}

// PostAdjustmentDocument posts every line of a document inside one transaction.
// Costs are averaged per product across all warehouses. Inbound lines move the
// group average as they post; outbound lines leave at the group average the
// product had when the document opened.
func (s *Service) PostAdjustmentDocument(ctx context.Context, input AdjustmentInput) (Adjustment, error) {
	if err := validateAdjustment(input); err != nil {
		return Adjustment{}, err
	}
	now := s.now().UTC()
	code := input.Code
	if code == "" {
		code = fmt.Sprintf("ADJ-%d", now.UnixNano())
	}
	doc := Adjustment{
		Code:         code,
		SubsidiaryID: input.SubsidiaryID,
		AccountID:    input.AccountID,
		Memo:         input.Memo,
		SourceKey:    input.SourceKey,
		PostedAt:     now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertAdjustment(ctx, doc, input.ActorID)
		if err != nil {
			return err
		}
		doc.ID = id
		doc.Lines = make([]AdjustmentLine, 0, len(input.Lines))
		pools := make(map[int64]*costPool)
		order := make([]int64, 0, 1)
		for i, in := range input.Lines {
			pool, ok := pools[in.ProductID]
			if !ok {
				balances, err := tx.LockProductBalances(ctx, in.ProductID)
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				pool = newCostPool(in.ProductID, balances)
				pools[in.ProductID] = pool
				order = append(order, in.ProductID)
			}
			line, err := s.postLine(ctx, tx, doc, pool, i+1, in)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			doc.Lines = append(doc.Lines, line)
		}
		for _, productID := range order {
			if err := tx.SetProductAverage(ctx, productID, pools[productID].avg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("inventory:%s", TransactionTypeAdjust),
			Entity:   "inventory_adjustment",
			EntityID: doc.Code,
			Meta: map[string]any{
				"memo":        doc.Memo,
				"source_key":  doc.SourceKey,
				"lines":       len(doc.Lines),
				"revaluation": input.Revaluation,
			},
			At: now,
		})
	}
	return doc, nil
}

func (s *Service) postLine(ctx context.Context, tx TxRepository, doc Adjustment, pool *costPool, lineNo int, in AdjustmentLineInput) (AdjustmentLine, error) {
	balance := pool.location(in.WarehouseID)
	qtyChange := in.Qty
	newQty := balance.Qty + qtyChange
	if !s.allowNeg && newQty < -qtyEpsilon {
		return AdjustmentLine{}, ErrNegativeStock
	}
	if math.Abs(newQty) < qtyEpsilon {
		newQty = 0
	}
	unitCost := pool.openingAvg
	if qtyChange > 0 && in.UnitCost != nil {
		unitCost = *in.UnitCost
	}
	newAvg := pool.apply(qtyChange, unitCost)
	line := AdjustmentLine{
		LineNo:      lineNo,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Qty:         qtyChange,
		UnitCost:    unitCost,
		BalanceQty:  newQty,
		BalanceCost: newAvg,
		DetailQty:   in.DetailQty,
	}
	lineID, err := tx.InsertAdjustmentLine(ctx, doc.ID, line)
	if err != nil {
		return AdjustmentLine{}, err
	}
	line.ID = lineID
	balance.Qty = newQty
	balance.AvgCost = newAvg
	if err := tx.UpsertBalance(ctx, balance); err != nil {
		return AdjustmentLine{}, err
	}
	pool.locations[in.WarehouseID] = balance
	card := StockCardEntry{
		TxCode:      doc.Code,
		TxType:      TransactionTypeAdjust,
		PostedAt:    doc.PostedAt,
		QtyIn:       math.Max(qtyChange, 0),
		QtyOut:      math.Max(-qtyChange, 0),
		BalanceQty:  newQty,
		UnitCost:    unitCost,
		BalanceCost: newAvg,
		Note:        doc.Memo,
	}
	if err := tx.InsertCardEntry(ctx, card, in.WarehouseID, in.ProductID, doc.ID); err != nil {
		return AdjustmentLine{}, err
	}
	if in.DetailQty != 0 {
		line.DetailStatus, line.DetailError = assignDetail(ctx, tx, line)
	}
	return line, nil
}

// assignDetail never fails the line; the outcome is reported on it instead.
func assignDetail(ctx context.Context, tx TxRepository, line AdjustmentLine) (DetailStatus, string) {
	tracked, err := tx.IsTracked(ctx, line.ProductID)
	if err != nil {
		return DetailFailed, err.Error()
	}
	if !tracked {
		return DetailNotRequired, ""
	}
	if err := tx.AssignDetail(ctx, line.ID, line.DetailQty); err != nil {
		return DetailFailed, err.Error()
	}
	return DetailAssigned, ""
}

func validateAdjustment(input AdjustmentInput) error {
	if input.AccountID == 0 {
		return ErrAccountRequired
	}
	if len(input.Lines) == 0 {
		return ErrEmptyAdjustment
	}
	for i, line := range input.Lines {
		if line.WarehouseID == 0 || line.ProductID == 0 {
			return fmt.Errorf("inventory: line %d: warehouse and product required", i+1)
		}
		if math.Abs(line.Qty) < 1e-9 {
			return fmt.Errorf("line %d: %w", i+1, ErrInvalidQuantity)
		}
		if line.UnitCost == nil {
			continue
		}
		if line.Qty < 0 {
			return fmt.Errorf("line %d: %w", i+1, ErrOutboundUnitCost)
		}
		if *line.UnitCost < 0 && !input.Revaluation {
			return fmt.Errorf("line %d: %w", i+1, ErrInvalidUnitCost)
		}
	}
	if input.Revaluation {
		for productID, net := range netQuantities(input.Lines) {
			if math.Abs(net) >= qtyEpsilon {
				return fmt.Errorf("product %d: %w", productID, ErrUnbalancedRevaluation)
			}
		}
	}
	return nil
}
