package wash

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/costwash/internal/inventory"
)

// ledgerRepo keeps inventory balances and adjustments in memory so a wash run
// can post through the real inventory service.
type ledgerRepo struct {
	balances    map[string]inventory.Balance
	adjustments []inventory.Adjustment
	nextID      int64
}

type ledgerTx struct {
	repo *ledgerRepo
}

func newLedgerRepo() *ledgerRepo {
	return &ledgerRepo{balances: make(map[string]inventory.Balance)}
}

func balanceKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (r *ledgerRepo) seed(warehouseID, productID int64, qty, avg float64) {
	r.balances[balanceKey(warehouseID, productID)] = inventory.Balance{WarehouseID: warehouseID, ProductID: productID, Qty: qty, AvgCost: avg}
}

// value is the product's inventory value summed over every warehouse.
func (r *ledgerRepo) value(productID int64) float64 {
	var total float64
	for _, bal := range r.balances {
		if bal.ProductID == productID {
			total += bal.Qty * bal.AvgCost
		}
	}
	return total
}

func (r *ledgerRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	snapshot := make(map[string]inventory.Balance, len(r.balances))
	for k, v := range r.balances {
		snapshot[k] = v
	}
	adjustments := len(r.adjustments)
	if err := fn(ctx, &ledgerTx{repo: r}); err != nil {
		r.balances = snapshot
		r.adjustments = r.adjustments[:adjustments]
		return err
	}
	return nil
}

func (r *ledgerRepo) GetBalance(_ context.Context, warehouseID, productID int64) (inventory.Balance, error) {
	bal, ok := r.balances[balanceKey(warehouseID, productID)]
	if !ok {
		return inventory.Balance{}, inventory.ErrBalanceNotFound
	}
	return bal, nil
}

func (r *ledgerRepo) FindAdjustmentsByMemo(_ context.Context, fragment string, limit int) ([]inventory.Adjustment, error) {
	var found []inventory.Adjustment
	for _, adj := range r.adjustments {
		if strings.Contains(adj.Memo, fragment) && len(found) < limit {
			found = append(found, adj)
		}
	}
	return found, nil
}

func (tx *ledgerTx) InsertAdjustment(_ context.Context, adj inventory.Adjustment, _ int64) (int64, error) {
	for _, existing := range tx.repo.adjustments {
		if adj.SourceKey != "" && existing.SourceKey == adj.SourceKey {
			return 0, inventory.ErrDuplicateAdjustment
		}
	}
	tx.repo.nextID++
	adj.ID = tx.repo.nextID
	tx.repo.adjustments = append(tx.repo.adjustments, adj)
	return adj.ID, nil
}

func (tx *ledgerTx) InsertAdjustmentLine(context.Context, int64, inventory.AdjustmentLine) (int64, error) {
	tx.repo.nextID++
	return tx.repo.nextID, nil
}

func (tx *ledgerTx) LockProductBalances(_ context.Context, productID int64) ([]inventory.Balance, error) {
	var balances []inventory.Balance
	for _, bal := range tx.repo.balances {
		if bal.ProductID == productID {
			balances = append(balances, bal)
		}
	}
	return balances, nil
}

func (tx *ledgerTx) SetProductAverage(_ context.Context, productID int64, avg float64) error {
	for k, bal := range tx.repo.balances {
		if bal.ProductID == productID {
			bal.AvgCost = avg
			tx.repo.balances[k] = bal
		}
	}
	return nil
}

func (tx *ledgerTx) UpsertBalance(_ context.Context, balance inventory.Balance) error {
	tx.repo.balances[balanceKey(balance.WarehouseID, balance.ProductID)] = balance
	return nil
}

func (tx *ledgerTx) InsertCardEntry(context.Context, inventory.StockCardEntry, int64, int64, int64) error {
	return nil
}

func (tx *ledgerTx) IsTracked(context.Context, int64) (bool, error) {
	return false, nil
}

func (tx *ledgerTx) AssignDetail(context.Context, int64, float64) error {
	return nil
}

// newLedgerService wires Run to the inventory service over repo. Fulfillment
// 2001 ships from return VRA-1 out of warehouse 10; holding is warehouse 99.
func newLedgerService(repo *ledgerRepo, sourceLines []SourceLine, shipment []ShipmentLine) *Service {
	store := newFakeStore()
	store.headers["2001"] = FulfillmentHeader{ID: "2001", StatusValue: "ItemShip:C", StatusText: "Shipped", CreatedFrom: "VRA-1", Subsidiary: "1"}
	store.types["VRA-1"] = SourceRecordType
	store.sourceLines["VRA-1"] = sourceLines
	store.shipments["2001"] = shipment

	adapter := NewInventoryAdapter(inventory.NewService(repo, nil, inventory.ServiceConfig{}))
	return NewService(Deps{
		Store:     store,
		Inventory: adapter,
		Finder:    adapter,
		Writer:    adapter,
		Settings:  StaticSettings{AdjustmentAccount: "5100", HoldingLocation: "99"},
		Logger:    discardLogger(),
	}, 0)
}

func TestRunMovesInventoryValueByVariance(t *testing.T) {
	repo := newLedgerRepo()
	repo.seed(10, 1, 50, 10)
	svc := newLedgerService(repo,
		[]SourceLine{{LineID: "5", Rate: "12"}},
		[]ShipmentLine{{Item: "1", Quantity: dec("10"), Location: "10", OrderLine: "5", ItemType: "InvtPart"}},
	)
	before := repo.value(1)

	out := svc.Run(context.Background(), Event{Type: EventShip, RecordID: "2001"})

	require.True(t, out.Created, "reason %q", out.Reason)
	require.Len(t, out.Results, 1)
	require.True(t, out.Results[0].VarianceTotal.Equal(dec("20")))
	require.InDelta(t, out.Results[0].VarianceTotal.InexactFloat64(), repo.value(1)-before, 1e-6)

	shipped, err := repo.GetBalance(context.Background(), 10, 1)
	require.NoError(t, err)
	require.InDelta(t, 50.0, shipped.Qty, 1e-9)
	require.InDelta(t, 10.4, shipped.AvgCost, 1e-9)
	holding, err := repo.GetBalance(context.Background(), 99, 1)
	require.NoError(t, err)
	require.InDelta(t, 0.0, holding.Qty, 1e-9)

	again := svc.Run(context.Background(), Event{Type: EventXEdit, RecordID: "2001"})
	require.Equal(t, SkipDuplicate, again.Reason)
	require.Len(t, repo.adjustments, 1)
}

func TestRunPostsNegativeVarianceWithSiblings(t *testing.T) {
	repo := newLedgerRepo()
	repo.seed(10, 1, 50, 10)
	repo.seed(10, 2, 50, 10)
	svc := newLedgerService(repo,
		[]SourceLine{{LineID: "5", Rate: "12"}, {LineID: "6", Rate: "9"}},
		[]ShipmentLine{
			{Item: "1", Quantity: dec("10"), Location: "10", OrderLine: "5", ItemType: "InvtPart"},
			{Item: "2", Quantity: dec("11"), Location: "10", OrderLine: "6", ItemType: "InvtPart"},
		},
	)
	before1, before2 := repo.value(1), repo.value(2)

	out := svc.Run(context.Background(), Event{Type: EventShip, RecordID: "2001"})

	require.True(t, out.Created, "reason %q", out.Reason)
	require.Empty(t, out.Skipped)
	require.Len(t, out.Results, 2)
	require.True(t, out.Results[1].WashUnitCost.Equal(dec("-1")))
	require.InDelta(t, 20.0, repo.value(1)-before1, 1e-6)
	require.InDelta(t, -11.0, repo.value(2)-before2, 1e-6)

	bal, err := repo.GetBalance(context.Background(), 10, 2)
	require.NoError(t, err)
	require.InDelta(t, 9.78, bal.AvgCost, 1e-9)
}

func TestRunRepeatedItemWashesEachLine(t *testing.T) {
	repo := newLedgerRepo()
	repo.seed(10, 1, 50, 10)
	svc := newLedgerService(repo,
		[]SourceLine{{LineID: "5", Rate: "12"}, {LineID: "6", Rate: "11"}},
		[]ShipmentLine{
			{Item: "1", Quantity: dec("10"), Location: "10", OrderLine: "5", ItemType: "InvtPart"},
			{Item: "1", Quantity: dec("4"), Location: "10", OrderLine: "6", ItemType: "InvtPart"},
		},
	)
	before := repo.value(1)

	out := svc.Run(context.Background(), Event{Type: EventShip, RecordID: "2001"})

	require.True(t, out.Created, "reason %q", out.Reason)
	require.Len(t, out.Results, 2)
	require.InDelta(t, 24.0, repo.value(1)-before, 1e-6)
}
