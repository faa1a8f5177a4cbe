package calc

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
)

// Health is the composite housing health index.
type Health struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

// Weights for affordability, supply, risk and momentum.
var healthWeights = []float64{0.35, 0.25, 0.25, 0.15}

// momentumPlaceholder stands in for a price-stability score until a
// historical component is computed.
const momentumPlaceholder = 75

// HousingHealthIndex scores a metric row from 0 to 100.
func HousingHealthIndex(m housing.Metric) Health {
	affordability := clamp(m.AffordabilityIndex/125*100, 0, 100)

	var monthsOfSupply float64
	if m.TotalInventory > 0 {
		denom := m.BuildingPermits * 12
		if denom == 0 {
			denom = 1
		}
		monthsOfSupply = m.TotalInventory / denom
	}
	supply := 50.0
	if monthsOfSupply > 0 {
		supply = clamp(100-math.Abs(monthsOfSupply-6)*10, 0, 100)
	}

	risk := clamp(100-(m.MortgageRate-4)*10-(m.CoreInflation-2)*5, 0, 100)

	score := math.Round(floats.Dot(healthWeights, []float64{affordability, supply, risk, momentumPlaceholder}))
	switch {
	case score >= 75:
		return Health{Score: score, Status: "Healthy", Message: "Market conditions are favorable"}
	case score >= 50:
		return Health{Score: score, Status: "Caution", Message: "Some indicators warrant attention"}
	case score >= 25:
		return Health{Score: score, Status: "Warning", Message: "Multiple risk factors present"}
	default:
		return Health{Score: score, Status: "Critical", Message: "Significant market stress detected"}
	}
}

// Risk summarises crash indicators for one date.
type Risk struct {
	TotalPoints int      `json:"totalPoints"`
	MaxPoints   int      `json:"maxPoints"`
	RiskLevel   string   `json:"riskLevel"`
	RiskPercent float64  `json:"riskPercent"`
	Warnings    []string `json:"warnings"`
}

// CrashRisk totals indicator points and lists warnings derived from m.
func CrashRisk(indicators []housing.CrashIndicator, m housing.Metric) Risk {
	total := 0
	for _, ind := range indicators {
		total += ind.Points
	}
	maxPoints := total

	var pct float64
	if maxPoints > 0 {
		pct = float64(total) / float64(maxPoints) * 100
	}

	level := "Critical"
	switch {
	case pct < 20:
		level = "Low"
	case pct < 40:
		level = "Moderate"
	case pct < 60:
		level = "Elevated"
	case pct < 80:
		level = "High"
	}

	warnings := []string{}
	if m.MortgageRate > 7 {
		warnings = append(warnings, "High mortgage rates reducing affordability")
	}
	if m.AffordabilityIndex < 100 {
		warnings = append(warnings, "Affordability index below sustainable level")
	}
	if m.CoreInflation > 4 {
		warnings = append(warnings, "Elevated inflation threatening purchasing power")
	}

	return Risk{
		TotalPoints: total,
		MaxPoints:   maxPoints,
		RiskLevel:   level,
		RiskPercent: math.Round(pct),
		Warnings:    warnings,
	}
}

// Momentum compares two consecutive metric rows.
type Momentum struct {
	PriceMomentum     float64 `json:"priceMomentum"`
	InventoryMomentum float64 `json:"inventoryMomentum"`
	RateMomentum      float64 `json:"rateMomentum"`
	Overall           string  `json:"overall"`
}

// MarketMomentum reports the direction of the market between previous and
// current. A nil previous yields a neutral result.
func MarketMomentum(current housing.Metric, previous *housing.Metric) Momentum {
	if previous == nil {
		return Momentum{Overall: "Stable"}
	}

	var price float64
	if previous.MedianHomeValue != 0 {
		price = (current.MedianHomeValue - previous.MedianHomeValue) / previous.MedianHomeValue * 100
	}
	inventory := current.TotalInventory - previous.TotalInventory
	rate := current.MortgageRate - previous.MortgageRate

	score := price - rate*2
	if inventory > 0 {
		score--
	} else {
		score++
	}

	overall := "Contracting"
	switch {
	case score > 2:
		overall = "Accelerating"
	case score > 0.5:
		overall = "Growing"
	case score > -0.5:
		overall = "Stable"
	case score > -2:
		overall = "Slowing"
	}

	return Momentum{
		PriceMomentum:     Round(price, 1),
		InventoryMomentum: inventory,
		RateMomentum:      Round(rate, 2),
		Overall:           overall,
	}
}

// Indicator categories and risk tiers.
const (
	CategoryCritical = "Critical"
	CategoryMajor    = "Major"
	CategoryMinor    = "Minor"

	TierLow      = "Low Risk"
	TierModerate = "Moderate Risk"
	TierElevated = "Elevated Risk"
	TierHigh     = "High Risk"
)

// CrashIndicators derives the four tracked crash indicators from m. The
// returned rows carry no date.
func CrashIndicators(m housing.Metric) []housing.CrashIndicator {
	ratePoints, rateTier := 5, TierLow
	switch {
	case m.MortgageRate > 7:
		ratePoints, rateTier = 15, TierHigh
	case m.MortgageRate > 6:
		ratePoints, rateTier = 10, TierModerate
	case m.MortgageRate > 5:
		rateTier = TierModerate
	}

	var pti float64
	if m.MedianHouseholdIncome != 0 {
		pti = m.MedianHomeValue / m.MedianHouseholdIncome
	}
	ptiPoints, ptiTier := 6, TierLow
	if pti > 5 {
		ptiPoints, ptiTier = 12, TierElevated
	}

	aiPoints, aiTier := 3, TierLow
	if m.AffordabilityIndex < 100 {
		aiPoints, aiTier = 8, TierElevated
	}

	permitPoints, permitTier := 2, TierLow
	if m.BuildingPermits < 1000 {
		permitPoints, permitTier = 5, TierModerate
	}

	return []housing.CrashIndicator{
		{VariableName: "Mortgage Rate Level", Category: CategoryCritical, CurrentValue: Round(m.MortgageRate, 2), Points: ratePoints, RiskTier: rateTier},
		{VariableName: "Price-to-Income Ratio", Category: CategoryCritical, CurrentValue: Round(pti, 2), Points: ptiPoints, RiskTier: ptiTier},
		{VariableName: "Affordability Index", Category: CategoryMajor, CurrentValue: Round(m.AffordabilityIndex, 2), Points: aiPoints, RiskTier: aiTier},
		{VariableName: "Building Permits Trend", Category: CategoryMinor, CurrentValue: Round(m.BuildingPermits, 2), Points: permitPoints, RiskTier: permitTier},
	}
}

// Weights for home price, mortgage rate, inflation and affordability.
var economicWeights = []float64{0.30, 0.25, 0.25, 0.20}

// CompositeEconomicIndex blends four normalised components of m into a single
// index rounded to one decimal.
func CompositeEconomicIndex(m housing.Metric) float64 {
	components := []float64{
		m.MedianHomeValue / 400000 * 100,
		(7 - m.MortgageRate) / 3 * 100,
		(5 - m.CoreInflation) / 3 * 100,
		m.AffordabilityIndex / 125 * 100,
	}
	return Round(floats.Dot(economicWeights, components), 1)
}
