package inventory

import "math"

const qtyEpsilon = 0.0001

// costPool carries one product's group average across every warehouse while a
// document posts. Quantities stay per warehouse; value and average do not.
type costPool struct {
	productID int64
	qty       float64
	value     float64
	// openingAvg prices every outbound line of the document.
	openingAvg float64
	locations  map[int64]Balance
}

func newCostPool(productID int64, balances []Balance) *costPool {
	pool := &costPool{productID: productID, locations: make(map[int64]Balance, len(balances))}
	var fallback float64
	for _, bal := range balances {
		pool.locations[bal.WarehouseID] = bal
		pool.qty += bal.Qty
		pool.value += bal.Qty * bal.AvgCost
		if fallback == 0 {
			fallback = bal.AvgCost
		}
	}
	if pool.qty > qtyEpsilon {
		pool.openingAvg = pool.value / pool.qty
	} else {
		pool.openingAvg = fallback
		pool.qty, pool.value = 0, 0
	}
	return pool
}

func (p *costPool) location(warehouseID int64) Balance {
	if bal, ok := p.locations[warehouseID]; ok {
		return bal
	}
	return Balance{WarehouseID: warehouseID, ProductID: p.productID, AvgCost: p.openingAvg}
}

// apply books qty at unitCost and returns the pool average afterwards.
func (p *costPool) apply(qty, unitCost float64) float64 {
	p.qty += qty
	p.value += qty * unitCost
	if math.Abs(p.qty) < qtyEpsilon {
		p.qty, p.value = 0, 0
	}
	return p.avg()
}

func (p *costPool) avg() float64 {
	if p.qty <= 0 {
		return 0
	}
	return p.value / p.qty
}

// netQuantities sums line quantities per product.
func netQuantities(lines []AdjustmentLineInput) map[int64]float64 {
	net := make(map[int64]float64)
	for _, line := range lines {
		net[line.ProductID] += line.Qty
	}
	return net
}
