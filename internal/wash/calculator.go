package wash

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// NegligibleVariance is the smallest absolute variance worth posting.
var NegligibleVariance = decimal.New(1, -2)

// ComputeVariance returns the total variance between the return rate and the
// average cost over qty, and the unit cost a +1/-1 pair needs to move that
// variance into inventory value.
func ComputeVariance(rate, averageCost, qty decimal.Decimal) (varianceTotal, washUnitCost decimal.Decimal) {
	varianceTotal = rate.Sub(averageCost).Mul(qty)
	washUnitCost = averageCost.Add(varianceTotal)
	return varianceTotal, washUnitCost
}

// IsNegligible reports whether a variance is below the posting floor.
func IsNegligible(varianceTotal decimal.Decimal) bool {
	return varianceTotal.Abs().LessThan(NegligibleVariance)
}

type lineEvaluation struct {
	results []VarianceResult
	skipped []LineSkip
}

func (e *lineEvaluation) skip(index int, item string, reason LineReason) {
	e.skipped = append(e.skipped, LineSkip{Index: index, Item: item, Reason: reason})
}

// evaluateLines turns shipment lines into wash results. Each line either yields
// one result or one skip.
func (s *Service) evaluateLines(ctx context.Context, recordID string, lines []ShipmentLine, rates RateMap, stock *StockProvider, holding string) lineEvaluation {
	var eval lineEvaluation
	for i, line := range lines {
		if line.Item == "" || !line.Quantity.IsPositive() || isPseudoItem(line.ItemType) {
			eval.skip(i, line.Item, LineNotInventory)
			continue
		}
		rate, ok := MatchRate(line, rates)
		if !ok || !rate.Valid {
			s.audit(ctx, recordID, "line_skipped", map[string]any{
				"line": i, "item": line.Item, "reason": string(LineRateUnmatched),
				"quantity": line.Quantity.String(), "location": line.Location, "rate": rate.Raw,
			})
			eval.skip(i, line.Item, LineRateUnmatched)
			continue
		}
		state, ok := stock.Get(ctx, line.Item, line.Location)
		if !ok {
			s.audit(ctx, recordID, "line_skipped", map[string]any{
				"line": i, "item": line.Item, "reason": string(LineStockUnavailable), "location": line.Location,
			})
			eval.skip(i, line.Item, LineStockUnavailable)
			continue
		}
		if !state.QuantityOnHand.IsPositive() {
			s.audit(ctx, recordID, "line_skipped", map[string]any{
				"line": i, "item": line.Item, "reason": string(LineNoOnHand), "on_hand": state.QuantityOnHand.String(),
			})
			eval.skip(i, line.Item, LineNoOnHand)
			continue
		}
		variance, washCost := ComputeVariance(rate.Value, state.AverageCost, line.Quantity)
		if IsNegligible(variance) {
			s.audit(ctx, recordID, "line_skipped", map[string]any{
				"line": i, "item": line.Item, "reason": string(LineNegligible), "variance": variance.String(),
			})
			eval.skip(i, line.Item, LineNegligible)
			continue
		}
		s.logger.Debug("wash: line computed",
			slog.String("record_id", recordID),
			slog.String("item", line.Item),
			slog.String("average_cost", state.AverageCost.String()),
			slog.String("rate", rate.Value.String()),
			slog.String("variance_total", variance.String()),
			slog.String("on_hand", state.QuantityOnHand.String()),
			slog.String("wash_unit_cost", washCost.String()),
		)
		eval.results = append(eval.results, VarianceResult{
			LineIndex:      i,
			Item:           line.Item,
			Quantity:       line.Quantity,
			Rate:           rate.Value,
			AverageCost:    state.AverageCost,
			VarianceTotal:  variance,
			WashUnitCost:   washCost,
			TargetLocation: holding,
		})
	}
	return eval
}
