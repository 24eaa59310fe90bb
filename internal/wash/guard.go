package wash

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IdempotencyGuard detects washes already posted for a record.
type IdempotencyGuard struct {
	finder AdjustmentFinder
	logger *slog.Logger
}

// NewIdempotencyGuard constructs an IdempotencyGuard.
func NewIdempotencyGuard(finder AdjustmentFinder, logger *slog.Logger) *IdempotencyGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyGuard{finder: finder, logger: logger}
}

// Exists reports whether an adjustment memo carries the wash marker for
// recordID. A failed search reports false.
func (g *IdempotencyGuard) Exists(ctx context.Context, recordID string) bool {
	marker := Memo(recordID)
	memos, err := g.finder.FindAdjustmentMemos(ctx, marker)
	if err != nil {
		g.logger.Error("wash: idempotency check failed", slog.String("record_id", recordID), slog.Any("error", err))
		return false
	}
	for _, memo := range memos {
		if containsMarker(memo, marker) {
			return true
		}
	}
	return false
}

// containsMarker matches marker only where it is not followed by another
// letter or digit, so "#4" does not match a memo for "#42".
func containsMarker(memo, marker string) bool {
	for offset := 0; ; {
		idx := strings.Index(memo[offset:], marker)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(marker)
		if end == len(memo) {
			return true
		}
		next, _ := utf8.DecodeRuneInString(memo[end:])
		if !unicode.IsLetter(next) && !unicode.IsDigit(next) {
			return true
		}
		offset = offset + idx + 1
	}
}
