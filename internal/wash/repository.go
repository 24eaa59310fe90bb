package wash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads fulfillments, returns and wash settings from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LookupFulfillment reads the header fields the run decides on.
func (r *Repository) LookupFulfillment(ctx context.Context, id string) (FulfillmentHeader, error) {
	var h FulfillmentHeader
	err := r.pool.QueryRow(ctx, `SELECT id, COALESCE(status_value, ''), COALESCE(status_text, ''), COALESCE(created_from, ''), COALESCE(subsidiary_id, '')
FROM item_fulfillments WHERE id=$1`, id).Scan(&h.ID, &h.StatusValue, &h.StatusText, &h.CreatedFrom, &h.Subsidiary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FulfillmentHeader{}, ErrRecordNotFound
		}
		return FulfillmentHeader{}, fmt.Errorf("wash: lookup fulfillment %s: %w", id, err)
	}
	return h, nil
}

// RecordTypeOf resolves the type of any transaction.
func (r *Repository) RecordTypeOf(ctx context.Context, id string) (string, error) {
	var recordType string
	err := r.pool.QueryRow(ctx, `SELECT record_type FROM transactions WHERE id=$1`, id).Scan(&recordType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("wash: record type of %s: %w", id, err)
	}
	return recordType, nil
}

// LoadSourceLines reads the lines of a vendor return. A return with no rows
// is reported as not found.
func (r *Repository) LoadSourceLines(ctx context.Context, sourceID string) ([]SourceLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(line_id, ''), COALESCE(line_unique_key, ''), COALESCE(rate, '')
FROM vendor_return_lines WHERE return_id=$1 ORDER BY line_no`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("wash: load source lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SourceLine, error) {
		var l SourceLine
		err := row.Scan(&l.LineID, &l.LineUniqueKey, &l.Rate)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("wash: load source lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrRecordNotFound
	}
	return lines, nil
}

// LoadShipmentLines reads the item lines of a fulfillment in line order.
func (r *Repository) LoadShipmentLines(ctx context.Context, fulfillmentID string) ([]ShipmentLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(item_id, ''), COALESCE(quantity::text, '0'), COALESCE(location_id, ''), COALESCE(order_line, ''), COALESCE(line_unique_key, ''), COALESCE(item_type, '')
FROM item_fulfillment_lines WHERE fulfillment_id=$1 ORDER BY line_no`, fulfillmentID)
	if err != nil {
		return nil, fmt.Errorf("wash: load shipment lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ShipmentLine, error) {
		var (
			l   ShipmentLine
			qty string
		)
		if err := row.Scan(&l.Item, &qty, &l.Location, &l.OrderLine, &l.LineUniqueKey, &l.ItemType); err != nil {
			return l, err
		}
		parsed, err := decimal.NewFromString(qty)
		if err != nil {
			return l, fmt.Errorf("quantity %q: %w", qty, err)
		}
		l.Quantity = parsed
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wash: load shipment lines: %w", err)
	}
	return lines, nil
}

// Settings reads the single wash_settings row. A missing row yields empty
// settings, which the run reports as a configuration error.
func (r *Repository) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(adjustment_account, ''), COALESCE(holding_location, '') FROM wash_settings ORDER BY id DESC LIMIT 1`).
		Scan(&s.AdjustmentAccount, &s.HoldingLocation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("wash: load settings: %w", err)
	}
	return s, nil
}

// UnwashedShipments lists fulfillments created from vendor returns, updated
// since the given time, in a shipped state and without a wash adjustment.
func (r *Repository) UnwashedShipments(ctx context.Context, since time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT f.id, COALESCE(f.status_value, ''), COALESCE(f.status_text, '')
FROM item_fulfillments f
JOIN transactions t ON t.id = f.created_from
WHERE t.record_type = $1
  AND f.updated_at >= $2
  AND NOT EXISTS (SELECT 1 FROM inventory_adjustments a WHERE a.source_key = f.id)
ORDER BY f.updated_at ASC
LIMIT $3`, SourceRecordType, since, limit)
	if err != nil {
		return nil, fmt.Errorf("wash: unwashed shipments: %w", err)
	}
	headers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FulfillmentHeader, error) {
		var h FulfillmentHeader
		err := row.Scan(&h.ID, &h.StatusValue, &h.StatusText)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("wash: unwashed shipments: %w", err)
	}
	ids := make([]string, 0, len(headers))
	for _, h := range headers {
		if IsShipped(h) {
			ids = append(ids, h.ID)
		}
	}
	return ids, nil
}
