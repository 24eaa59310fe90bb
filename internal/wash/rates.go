package wash

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// Rate is a return rate as recorded. Valid is false when Raw is not a number.
type Rate struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

func parseRate(raw string) Rate {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Rate{Raw: raw}
	}
	return Rate{Raw: raw, Value: value, Valid: true}
}

// RateMap maps both line ids and line unique keys to the rate of their source
// line. A missing key means no rate, which is distinct from a zero rate.
type RateMap map[string]Rate

func (m RateMap) add(line SourceLine) {
	if line.Rate == "" {
		return
	}
	rate := parseRate(line.Rate)
	if line.LineID != "" {
		m[line.LineID] = rate
	}
	if line.LineUniqueKey != "" {
		m[line.LineUniqueKey] = rate
	}
}

// MatchRate finds the rate for a shipment line, preferring the order line
// reference over the unique key.
func MatchRate(line ShipmentLine, rates RateMap) (Rate, bool) {
	if line.OrderLine != "" {
		if rate, ok := rates[line.OrderLine]; ok {
			return rate, true
		}
	}
	if line.LineUniqueKey != "" {
		if rate, ok := rates[line.LineUniqueKey]; ok {
			return rate, true
		}
	}
	return Rate{}, false
}

// RateResolver builds the rate map of a source return.
type RateResolver struct {
	store  RecordStore
	logger *slog.Logger
}

// NewRateResolver constructs a RateResolver.
func NewRateResolver(store RecordStore, logger *slog.Logger) *RateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateResolver{store: store, logger: logger}
}

// Resolve loads every source line once. A load failure yields an empty map so
// every shipment line ends up unmatched.
func (r *RateResolver) Resolve(ctx context.Context, sourceID string) RateMap {
	rates := make(RateMap)
	lines, err := r.store.LoadSourceLines(ctx, sourceID)
	if err != nil {
		r.logger.Error("wash: load source lines", slog.String("source_id", sourceID), slog.Any("error", err))
		return rates
	}
	for _, line := range lines {
		rates.add(line)
	}
	r.logger.Debug("wash: rate map built", slog.String("source_id", sourceID), slog.Int("lines", len(lines)), slog.Int("keys", len(rates)))
	return rates
}
