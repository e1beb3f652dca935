package pricing

import "github.com/alanyoungcy/kalshibot/internal/domain"

// DepthNearBest returns the total quantity resting within depthCents of the
// best bid. Levels are sorted ascending, so walk backwards from the best bid
// and stop at the first level outside the window.
func DepthNearBest(bids []domain.PriceLevel, depthCents int64) int64 {
	if len(bids) == 0 {
		return 0
	}
	best := bids[len(bids)-1].Price
	var total int64
	for i := len(bids) - 1; i >= 0; i-- {
		if best-bids[i].Price > depthCents {
			break
		}
		total += bids[i].Quantity
	}
	return total
}

// VWAP returns the volume-weighted average price over the top maxLevels bid
// levels, in cents. It reports false when the side has no quantity.
func VWAP(bids []domain.PriceLevel, maxLevels int) (float64, bool) {
	if len(bids) == 0 {
		return 0, false
	}
	start := len(bids) - maxLevels
	if start < 0 {
		start = 0
	}
	var value, qty int64
	for _, l := range bids[start:] {
		value += l.Price * l.Quantity
		qty += l.Quantity
	}
	if qty == 0 {
		return 0, false
	}
	return float64(value) / float64(qty), true
}

// Imbalance returns the bid-depth imbalance between the YES and NO sides on a
// [-1, 1] scale; positive values mean more YES pressure.
func Imbalance(p domain.MarketPricing) float64 {
	total := p.YesBidDepth + p.NoBidDepth
	if total == 0 {
		return 0
	}
	return float64(p.YesBidDepth-p.NoBidDepth) / float64(total)
}
