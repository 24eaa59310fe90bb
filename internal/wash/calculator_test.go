package wash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeVariance(t *testing.T) {
	tests := []struct {
		rate, avg, qty    string
		variance, washFor string
	}{
		{"12", "10", "10", "20", "30"},
		{"10", "12", "3", "-6", "6"},
		{"10", "10", "7", "0", "10"},
		{"0", "2.5", "4", "-10", "-7.5"},
		{"1.015", "1", "2", "0.03", "1.03"},
	}
	for _, tt := range tests {
		variance, wash := ComputeVariance(dec(tt.rate), dec(tt.avg), dec(tt.qty))
		require.True(t, variance.Equal(dec(tt.variance)), "variance %s for %+v", variance, tt)
		require.True(t, wash.Equal(dec(tt.washFor)), "wash %s for %+v", wash, tt)
		// washUnitCost - avg == variance, and variance == (rate - avg) * qty.
		require.True(t, wash.Sub(dec(tt.avg)).Equal(variance))
	}
}

func TestIsNegligibleBoundary(t *testing.T) {
	require.True(t, IsNegligible(dec("0.009")))
	require.True(t, IsNegligible(dec("-0.009")))
	require.True(t, IsNegligible(dec("0")))
	require.False(t, IsNegligible(dec("0.01")))
	require.False(t, IsNegligible(dec("-0.01")))

	variance, _ := ComputeVariance(dec("10.009"), dec("10"), dec("1"))
	require.True(t, IsNegligible(variance))
}

func TestMatchRatePrefersOrderLine(t *testing.T) {
	rates := make(RateMap)
	rates.add(SourceLine{LineID: "5", Rate: "n/a"})
	rates.add(SourceLine{LineUniqueKey: "uk-9", Rate: "7.25"})

	rate, ok := MatchRate(ShipmentLine{OrderLine: "5", LineUniqueKey: "uk-9"}, rates)
	require.True(t, ok)
	require.False(t, rate.Valid)
	require.Equal(t, "n/a", rate.Raw)

	rate, ok = MatchRate(ShipmentLine{OrderLine: "missing", LineUniqueKey: "uk-9"}, rates)
	require.True(t, ok)
	require.True(t, rate.Valid)
	require.True(t, rate.Value.Equal(dec("7.25")))

	_, ok = MatchRate(ShipmentLine{}, rates)
	require.False(t, ok)
}

func TestRateMapIgnoresEmptyRate(t *testing.T) {
	rates := make(RateMap)
	rates.add(SourceLine{LineID: "1", LineUniqueKey: "a", Rate: ""})
	rates.add(SourceLine{LineID: "2", LineUniqueKey: "b", Rate: "0"})

	require.NotContains(t, rates, "1")
	require.NotContains(t, rates, "a")
	require.True(t, rates["2"].Valid)
	require.Equal(t, rates["2"], rates["b"])
}

func TestRateResolverSwallowsLoadError(t *testing.T) {
	store := newFakeStore()
	store.sourceErr = errors.New("db down")

	rates := NewRateResolver(store, discardLogger()).Resolve(context.Background(), "VRA-1")
	require.Empty(t, rates)
	require.Equal(t, 1, store.sourceCalls)
}

func TestIsShipped(t *testing.T) {
	tests := []struct {
		header FulfillmentHeader
		want   bool
	}{
		{FulfillmentHeader{StatusValue: "ItemShip:C"}, true},
		{FulfillmentHeader{StatusValue: "shipped"}, true},
		{FulfillmentHeader{StatusValue: "C"}, true},
		{FulfillmentHeader{StatusText: "Shipped"}, true},
		{FulfillmentHeader{StatusValue: "ItemShip:B", StatusText: "Packed"}, false},
		{FulfillmentHeader{StatusValue: "SHIPPED"}, false},
		{FulfillmentHeader{}, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsShipped(tt.header), "%+v", tt.header)
	}
}

func TestStockProviderLogsAndCachesErrors(t *testing.T) {
	inv := newFakeInventory()
	inv.err = errors.New("search unavailable")
	stock := newStockProvider(inv, discardLogger())

	_, ok := stock.Get(context.Background(), "A", "L1")
	require.False(t, ok)
	_, ok = stock.Get(context.Background(), "A", "L1")
	require.False(t, ok)
	require.Equal(t, 1, inv.calls[stockKey{"A", "L1"}])
}
