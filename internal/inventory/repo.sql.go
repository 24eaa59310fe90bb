package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/costwash/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertAdjustment(ctx context.Context, adj Adjustment, actorID int64) (int64, error)
	InsertAdjustmentLine(ctx context.Context, adjustmentID int64, line AdjustmentLine) (int64, error)
	LockProductBalances(ctx context.Context, productID int64) ([]Balance, error)
	SetProductAverage(ctx context.Context, productID int64, avg float64) error
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertCardEntry(ctx context.Context, card StockCardEntry, warehouseID, productID int64, adjustmentID int64) error
	IsTracked(ctx context.Context, productID int64) (bool, error)
	AssignDetail(ctx context.Context, lineID int64, qty float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetBalance reads a balance row without locking it.
func (r *Repository) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	if r == nil {
		return Balance{}, errors.New("inventory repository not initialised")
	}
	var bal Balance
	err := r.pool.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at FROM inventory_balances WHERE warehouse_id=$1 AND product_id=$2`, warehouseID, productID).
		Scan(&bal.WarehouseID, &bal.ProductID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return bal, nil
}

// FindAdjustmentsByMemo returns adjustment headers whose memo contains fragment.
func (r *Repository) FindAdjustmentsByMemo(ctx context.Context, fragment string, limit int) ([]Adjustment, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, COALESCE(subsidiary_id, 0), account_id, memo, COALESCE(source_key, ''), posted_at
FROM inventory_adjustments
WHERE strpos(memo, $1) > 0
ORDER BY id ASC
LIMIT $2`, fragment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	adjustments := []Adjustment{}
	for rows.Next() {
		var adj Adjustment
		if err := rows.Scan(&adj.ID, &adj.Code, &adj.SubsidiaryID, &adj.AccountID, &adj.Memo, &adj.SourceKey, &adj.PostedAt); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return adjustments, nil
}

// InsertAdjustment writes the header. Column order follows the form: subsidiary
// before account.
func (r *txRepository) InsertAdjustment(ctx context.Context, adj Adjustment, actorID int64) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_adjustments (code, subsidiary_id, account_id, memo, source_key, posted_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`, adj.Code, nullInt(adj.SubsidiaryID), adj.AccountID, adj.Memo, nullString(adj.SourceKey), adj.PostedAt, nullInt(actorID)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateAdjustment
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertAdjustmentLine(ctx context.Context, adjustmentID int64, line AdjustmentLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_adjustment_lines (adjustment_id, line_no, product_id, warehouse_id, qty, unit_cost, balance_qty, balance_cost)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`, adjustmentID, line.LineNo, line.ProductID, line.WarehouseID, line.Qty, line.UnitCost, line.BalanceQty, line.BalanceCost).Scan(&id)
	return id, err
}

// LockProductBalances locks the product row, then every balance row of the
// product, so concurrent documents serialise on the group average.
func (r *txRepository) LockProductBalances(ctx context.Context, productID int64) ([]Balance, error) {
	if _, err := r.tx.Exec(ctx, `SELECT id FROM products WHERE id=$1 FOR UPDATE`, productID); err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at FROM inventory_balances WHERE product_id=$1 ORDER BY warehouse_id FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []Balance
	for rows.Next() {
		var bal Balance
		if err := rows.Scan(&bal.WarehouseID, &bal.ProductID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, bal)
	}
	return balances, rows.Err()
}

func (r *txRepository) SetProductAverage(ctx context.Context, productID int64, avg float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory_balances SET avg_cost=$2, updated_at=NOW() WHERE product_id=$1`, productID, avg)
	return err
}

func (r *txRepository) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_balances (warehouse_id, product_id, qty, avg_cost, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (warehouse_id, product_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, updated_at=NOW()`, balance.WarehouseID, balance.ProductID, balance.Qty, balance.AvgCost)
	return err
}

func (r *txRepository) InsertCardEntry(ctx context.Context, card StockCardEntry, warehouseID, productID int64, adjustmentID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_cards (warehouse_id, product_id, adjustment_id, tx_code, tx_type, qty_in, qty_out, balance_qty, unit_cost, balance_cost, posted_at, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, warehouseID, productID, adjustmentID, card.TxCode, string(card.TxType), card.QtyIn, card.QtyOut, card.BalanceQty, card.UnitCost, card.BalanceCost, card.PostedAt, card.Note)
	return err
}

func (r *txRepository) IsTracked(ctx context.Context, productID int64) (bool, error) {
	var tracked bool
	err := r.tx.QueryRow(ctx, `SELECT lot_tracked OR serial_tracked FROM products WHERE id=$1`, productID).Scan(&tracked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return tracked, nil
}

// AssignDetail runs inside a savepoint so a failed assignment leaves the
// surrounding transaction usable.
func (r *txRepository) AssignDetail(ctx context.Context, lineID int64, qty float64) error {
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("inventory: detail savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, `INSERT INTO inventory_adjustment_details (line_id, qty) VALUES ($1,$2)`, lineID, qty); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
