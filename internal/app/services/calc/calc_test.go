package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
)

func TestMonthlyPayment(t *testing.T) {
	assert.InDelta(t, 1199.10, MonthlyPayment(200000, 6, 30), 0.01)
	assert.InDelta(t, 100, MonthlyPayment(36000, 0, 30), 1e-9)
	assert.Zero(t, MonthlyPayment(100000, 5, 0))
}

func TestRegionalAffordability(t *testing.T) {
	r := RegionalAffordability(400000, 100000, 6)
	assert.Equal(t, 1919.0, r.MonthlyPayment)
	assert.Equal(t, 82224.0, r.QualifyingIncome)
	assert.Equal(t, 122.0, r.AffordabilityScore)
	assert.Equal(t, StatusAffordable, r.Status)

	low := RegionalAffordability(400000, 50000, 6)
	assert.Equal(t, StatusSeverelyUnaffordable, low.Status)
}

func TestAffordabilityMetricsAddsTaxesAndInsurance(t *testing.T) {
	b := AffordabilityMetrics(200000/0.9, 6, 80000, 0)
	assert.InDelta(t, 1199.10+400, b.MonthlyPayment, 0.01)
	assert.InDelta(t, b.MonthlyPayment/0.28*12, b.QualifyingIncome, 1e-6)
	assert.InDelta(t, 80000/b.QualifyingIncome*100, b.AffordabilityScore, 1e-9)
}

func TestPriceAndPaymentRatios(t *testing.T) {
	pti, err := PriceToIncome(420000, 80000)
	require.NoError(t, err)
	assert.Equal(t, Ratio{Value: 5.3, Status: "Severe"}, pti)

	pti, err = PriceToIncome(240000, 80000)
	require.NoError(t, err)
	assert.Equal(t, "Affordable", pti.Status)

	_, err = PriceToIncome(1, 0)
	assert.ErrorIs(t, err, ErrZeroIncome)

	pay, err := PaymentToIncome(2000, 6000)
	require.NoError(t, err)
	assert.Equal(t, Ratio{Value: 33.3, Status: "Burden"}, pay)
}

func TestHousingHealthIndex(t *testing.T) {
	h := HousingHealthIndex(housing.Metric{AffordabilityIndex: 125, MortgageRate: 4, CoreInflation: 2})
	assert.Equal(t, 84.0, h.Score)
	assert.Equal(t, "Healthy", h.Status)
	assert.Equal(t, "Market conditions are favorable", h.Message)

	h = HousingHealthIndex(housing.Metric{
		AffordabilityIndex: 50,
		TotalInventory:     72000,
		BuildingPermits:    1000,
		MortgageRate:       8,
		CoreInflation:      4,
	})
	assert.Equal(t, 63.0, h.Score)
	assert.Equal(t, "Caution", h.Status)
}

func TestCrashRisk(t *testing.T) {
	m := housing.Metric{MortgageRate: 7.5, AffordabilityIndex: 90, CoreInflation: 4.5}
	r := CrashRisk(CrashIndicators(m), m)
	assert.Equal(t, r.TotalPoints, r.MaxPoints)
	assert.Equal(t, "Critical", r.RiskLevel)
	assert.Len(t, r.Warnings, 3)

	empty := CrashRisk(nil, housing.Metric{MortgageRate: 5, AffordabilityIndex: 110, CoreInflation: 2})
	assert.Equal(t, "Low", empty.RiskLevel)
	assert.Empty(t, empty.Warnings)
	assert.NotNil(t, empty.Warnings)
}

func TestMarketMomentum(t *testing.T) {
	cur := housing.Metric{MedianHomeValue: 412000, MortgageRate: 6.5}
	assert.Equal(t, Momentum{Overall: "Stable"}, MarketMomentum(cur, nil))

	prev := housing.Metric{MedianHomeValue: 400000, MortgageRate: 7}
	m := MarketMomentum(cur, &prev)
	assert.Equal(t, 3.0, m.PriceMomentum)
	assert.Equal(t, -0.5, m.RateMomentum)
	assert.Equal(t, "Accelerating", m.Overall)

	prev = housing.Metric{MedianHomeValue: 412000, MortgageRate: 6.25, TotalInventory: 10}
	cur.TotalInventory = 20
	assert.Equal(t, "Slowing", MarketMomentum(cur, &prev).Overall)
}

func TestCrashIndicators(t *testing.T) {
	got := CrashIndicators(housing.Metric{
		MortgageRate:          7.2,
		MedianHomeValue:       420000,
		MedianHouseholdIncome: 80000,
		AffordabilityIndex:    95,
		BuildingPermits:       1400,
	})
	require.Len(t, got, 4)
	assert.Equal(t, 15, got[0].Points)
	assert.Equal(t, TierHigh, got[0].RiskTier)
	assert.Equal(t, 5.25, got[1].CurrentValue)
	assert.Equal(t, 12, got[1].Points)
	assert.Equal(t, TierElevated, got[2].RiskTier)
	assert.Equal(t, 2, got[3].Points)
	assert.Equal(t, TierLow, got[3].RiskTier)

	moderate := CrashIndicators(housing.Metric{MortgageRate: 5.5})
	assert.Equal(t, 5, moderate[0].Points)
	assert.Equal(t, TierModerate, moderate[0].RiskTier)
	assert.Zero(t, moderate[1].CurrentValue)
}

func TestCompositeEconomicIndex(t *testing.T) {
	assert.Equal(t, 50.0, CompositeEconomicIndex(housing.Metric{
		MedianHomeValue:    400000,
		MortgageRate:       7,
		CoreInflation:      5,
		AffordabilityIndex: 125,
	}))
}

func TestBuilderCostTrend(t *testing.T) {
	tr, err := BuilderCostTrend(108, 100, 12)
	require.NoError(t, err)
	assert.Equal(t, Trend{PercentChange: 8, AnnualizedChange: 8, Status: "Rise"}, tr)

	tr, err = BuilderCostTrend(90, 100, 6)
	require.NoError(t, err)
	assert.Equal(t, "MAJOR Drop", tr.Status)

	_, err = BuilderCostTrend(1, 0, 12)
	assert.Error(t, err)
	_, err = BuilderCostTrend(1, 1, 0)
	assert.Error(t, err)
}

func TestHouseholdExpenseImpact(t *testing.T) {
	impact, err := HouseholdExpenseImpact([]expense.HouseholdExpense{
		{Category: "Utilities", PercentChange: 1},
		{Category: "Housing", PercentChange: 5},
		{Category: "Misc", PercentChange: 2},
		{Category: "Food", PercentChange: 10},
	}, 60000)
	require.NoError(t, err)
	assert.Equal(t, 1938.0, impact.TotalMonthlyImpact)
	assert.Equal(t, 38.8, impact.PercentOfIncome)
	assert.Equal(t, "Crisis", impact.Status)
	require.Len(t, impact.BiggestIncreases, 3)
	assert.Equal(t, "Housing", impact.BiggestIncreases[0].Category)
	assert.Equal(t, "Food", impact.BiggestIncreases[1].Category)
	assert.Equal(t, "Misc", impact.BiggestIncreases[2].Category)
}

func TestExpenseIndex(t *testing.T) {
	v, ok := ExpenseIndex([]expense.HouseholdExpense{
		{Category: EssentialCategory, CurrentPrice: 110, StartPrice: 100},
		{Category: "Other", CurrentPrice: 120, StartPrice: 100},
		{Category: "Other", CurrentPrice: 5, StartPrice: 0},
	})
	require.True(t, ok)
	assert.InDelta(t, 114, v, 1e-9)

	_, ok = ExpenseIndex(nil)
	assert.False(t, ok)
}

func TestHomeMath(t *testing.T) {
	assert.Equal(t, 400000.0, Equity(500000, 100000))
	assert.Equal(t, 40000.0, SellingCosts(500000))
	assert.Equal(t, 360000.0, NetProceeds(500000, 100000))
	assert.Equal(t, 20.0, LTV(100000, 500000))
	assert.Zero(t, LTV(100000, 0))
	assert.InDelta(t, 500000*1.0304159569, ProjectValue(500000, 3, 12), 0.01)
}

func TestMetroTrendFrom(t *testing.T) {
	tr := MetroTrendFrom(110, 104, 100)
	assert.InDelta(t, 10, tr.YoYChange, 1e-9)
	assert.InDelta(t, 0.9615, tr.MoMChange, 1e-4)
	assert.Equal(t, metro.Rising, tr.TrendDirection)
	assert.Equal(t, tr.YoYChange, tr.AnnualizedGrowth)

	flat := MetroTrendFrom(100, 0, 0)
	assert.Equal(t, 100.0, flat.Value12MonthsAgo)
	assert.Equal(t, metro.Stable, flat.TrendDirection)

	assert.Equal(t, metro.Falling, MetroTrendFrom(90, 95, 100).TrendDirection)
}

func TestRecommend(t *testing.T) {
	falling := MetroTrendFrom(90, 95, 100)
	rising := MetroTrendFrom(110, 105, 100)

	a := Recommend(ScenarioInput{HomeValue: 300000, TargetCity: "Austin", CurrentMetro: &falling, TargetMetro: &rising})
	assert.Equal(t, advisor.Relocate, a.Recommendation)
	assert.Equal(t, advisor.High, a.Confidence)
	assert.Equal(t, "Your current market is declining (-10.0% YoY) while Austin is appreciating (10.0% YoY)", a.Reasoning[0])

	a = Recommend(ScenarioInput{HomeValue: 300000, TargetCity: "Austin", CurrentMetro: &rising, TargetMetro: &falling})
	assert.Equal(t, advisor.Hold, a.Recommendation)

	hot := MetroTrendFrom(112, 106, 100)
	a = Recommend(ScenarioInput{HomeValue: 300000, TargetCity: "Austin", CurrentMetro: &hot})
	assert.Equal(t, advisor.Wait, a.Recommendation)
	assert.Equal(t, advisor.Medium, a.Confidence)
	assert.Equal(t, "Your market is appreciating rapidly (12.0% annually)", a.Reasoning[0])

	target := metro.Trend{CurrentValue: 600000, TrendDirection: metro.Stable}
	a = Recommend(ScenarioInput{ScenarioType: advisor.SellAndBuy, HomeValue: 500000, MortgageBalance: 100000, TargetCity: "Denver", TargetMetro: &target})
	assert.Equal(t, advisor.SellNow, a.Recommendation)
	assert.InDelta(t, 120000, a.Financials.DownPaymentNeeded, 1e-6)
	assert.InDelta(t, 240000, a.Financials.RemainingAfterDownPayment, 1e-6)
	assert.True(t, a.Financials.CanAffordMove)
	assert.Equal(t, "You have sufficient equity for a move to Denver", a.Reasoning[0])
	assert.Contains(t, a.Reasoning[1], "Net proceeds: $")
	assert.Greater(t, a.ProjectedHomeValue.TwelveMonths, a.ProjectedHomeValue.SixMonths)

	a = Recommend(ScenarioInput{HomeValue: 500000, MortgageBalance: 480000, TargetCity: "Denver"})
	assert.Equal(t, advisor.Wait, a.Recommendation)
	assert.Equal(t, advisor.Low, a.Confidence)
	assert.Equal(t, 500000.0, a.TargetHomePrice)
	assert.False(t, a.Financials.CanAffordMove)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.3, Round(1.25, 1))
	assert.Equal(t, -1.3, Round(-1.25, 1))
	assert.Equal(t, 3.0, Round(2.5, 0))
}
