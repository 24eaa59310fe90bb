package washhttp

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/costwash/internal/wash"
)

var runGroup singleflight.Group

// singleflightRun collapses concurrent synchronous runs for the same record
// into one. shared reports whether the caller received another call's result.
func singleflightRun(ctx context.Context, key string, fn func(context.Context) wash.Outcome) (wash.Outcome, bool, error) {
	resultChan := runGroup.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx)), nil
	})
	select {
	case <-ctx.Done():
		return wash.Outcome{}, false, ctx.Err()
	case res := <-resultChan:
		out, _ := res.Val.(wash.Outcome)
		return out, res.Shared, res.Err
	}
}
