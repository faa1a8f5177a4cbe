package calc

import "github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"

const trendThreshold = 3

// MetroTrendFrom derives a trend from the current value and the values six
// and twelve months earlier. Missing (zero) look-backs fall back to current.
// Region identity is left for the caller to fill in.
func MetroTrendFrom(current, sixAgo, twelveAgo float64) metro.Trend {
	if sixAgo == 0 {
		sixAgo = current
	}
	if twelveAgo == 0 {
		twelveAgo = current
	}

	var mom, yoy float64
	if sixAgo != 0 {
		mom = (current - sixAgo) / sixAgo * 100 / 6
	}
	if twelveAgo != 0 {
		yoy = (current - twelveAgo) / twelveAgo * 100
	}

	direction := metro.Stable
	switch {
	case yoy > trendThreshold:
		direction = metro.Rising
	case yoy < -trendThreshold:
		direction = metro.Falling
	}

	return metro.Trend{
		CurrentValue:     current,
		Value6MonthsAgo:  sixAgo,
		Value12MonthsAgo: twelveAgo,
		MoMChange:        mom,
		YoYChange:        yoy,
		TrendDirection:   direction,
		AnnualizedGrowth: yoy,
	}
}
