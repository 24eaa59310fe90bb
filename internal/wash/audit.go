package wash

import (
	"context"
	"log/slog"
	"sort"
)

// auditTrail writes audit-level notes to the log and, when set, to an Auditor.
type auditTrail struct {
	logger  *slog.Logger
	auditor Auditor
}

func (t auditTrail) note(ctx context.Context, recordID, action string, meta map[string]any) {
	attrs := []any{slog.String("audit", action), slog.String("record_id", recordID)}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, meta[k]))
	}
	t.logger.InfoContext(ctx, "wash: "+action, attrs...)
	if t.auditor != nil {
		t.auditor.Audit(ctx, recordID, action, meta)
	}
}
