package wash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// MemoPrefix marks wash adjustments. The record id follows it directly.
const MemoPrefix = "Cost Variance Wash for IF #"

// Memo returns the memo that identifies the wash for a fulfillment.
func Memo(recordID string) string {
	return MemoPrefix + recordID
}

var (
	plusOne  = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// AdjustmentBuilder assembles and persists wash documents.
type AdjustmentBuilder struct {
	writer AdjustmentWriter
	trail  auditTrail
}

// NewAdjustmentBuilder constructs an AdjustmentBuilder. auditor may be nil.
func NewAdjustmentBuilder(writer AdjustmentWriter, logger *slog.Logger, auditor Auditor) *AdjustmentBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdjustmentBuilder{writer: writer, trail: auditTrail{logger: logger, auditor: auditor}}
}

// Build lays out one +1/-1 pair per result, both at the result's target
// location. The -1 line carries no cost so the inventory layer books it at the
// product's average as of document start.
func (b *AdjustmentBuilder) Build(results []VarianceResult, account, subsidiary, sourceID string) AdjustmentDocument {
	doc := AdjustmentDocument{
		Subsidiary: subsidiary,
		Account:    account,
		Memo:       Memo(sourceID),
		SourceID:   sourceID,
		Lines:      make([]AdjustmentLine, 0, len(results)*2),
	}
	for _, res := range results {
		cost := res.WashUnitCost
		doc.Lines = append(doc.Lines,
			AdjustmentLine{Item: res.Item, Location: res.TargetLocation, Quantity: plusOne, UnitCost: &cost, DetailQty: plusOne},
			AdjustmentLine{Item: res.Item, Location: res.TargetLocation, Quantity: minusOne, DetailQty: minusOne},
		)
	}
	return doc
}

// Persist writes doc and returns its id. Detail assignment problems are noted
// and never fail the document.
func (b *AdjustmentBuilder) Persist(ctx context.Context, doc AdjustmentDocument) (string, error) {
	posted, err := b.writer.CreateAdjustment(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("wash: create adjustment: %w", err)
	}
	for _, issue := range posted.DetailIssues {
		direction := "in"
		if issue.LineIndex%2 == 1 {
			direction = "out"
		}
		b.trail.note(ctx, doc.SourceID, "inventory_detail_skipped", map[string]any{
			"adjustment_id": posted.ID,
			"line":          issue.LineIndex,
			"direction":     direction,
			"item":          issue.Item,
			"reason":        issue.Reason,
		})
	}
	b.trail.note(ctx, doc.SourceID, "adjustment_created", map[string]any{
		"adjustment_id": posted.ID,
		"lines":         len(doc.Lines),
	})
	return posted.ID, nil
}
