package wash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdempotencyGuardExists(t *testing.T) {
	ledger := &fakeLedger{memos: []string{
		"Cost Variance Wash for IF #42",
		"Cost Variance Wash for IF #7 (manual rerun)",
		"unrelated memo",
	}}
	guard := NewIdempotencyGuard(ledger, discardLogger())
	ctx := context.Background()

	require.True(t, guard.Exists(ctx, "42"))
	require.True(t, guard.Exists(ctx, "7"))
	require.False(t, guard.Exists(ctx, "4"))
	require.False(t, guard.Exists(ctx, "420"))
}

func TestIdempotencyGuardFailsOpen(t *testing.T) {
	ledger := &fakeLedger{findErr: errors.New("timeout"), memos: []string{Memo("1")}}
	guard := NewIdempotencyGuard(ledger, discardLogger())

	require.False(t, guard.Exists(context.Background(), "1"))
}

func TestContainsMarker(t *testing.T) {
	marker := Memo("4")
	require.True(t, containsMarker(marker, marker))
	require.True(t, containsMarker("x "+marker+";", marker))
	require.True(t, containsMarker(Memo("42")+" / "+marker, marker))
	require.False(t, containsMarker(Memo("42"), marker))
	require.False(t, containsMarker(Memo("4a"), marker))
	require.False(t, containsMarker("", marker))
}
