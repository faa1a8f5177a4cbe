package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpex-ai/housing-intelligence/internal/app/cache"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stores(store *memory.Store) Stores {
	return Stores{Metrics: store, Regional: store, Expenses: store, Crash: store, Index: store}
}

func newCached(t *testing.T) (*Service, *memory.Store, *clockwork.FakeClock) {
	t.Helper()
	store := memory.New()
	clock := clockwork.NewFakeClock()
	return New(stores(store), cache.NewMemory(clock), time.Minute, nil), store, clock
}

func seedMetrics(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.UpsertMetric(context.Background(), housing.Metric{
			Date:            day(2024, time.Month(i+1), 1),
			MedianHomeValue: 400000 + float64(i)*1000,
		})
		require.NoError(t, err)
	}
}

func TestMetricHistoryIsAscending(t *testing.T) {
	svc, store, _ := newCached(t)
	seedMetrics(t, store, 6)

	rows, err := svc.MetricHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, day(2024, 4, 1), rows[0].Date)
	assert.Equal(t, day(2024, 6, 1), rows[2].Date)

	rows, err = svc.MetricHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestCacheServesUntilInvalidated(t *testing.T) {
	svc, store, clock := newCached(t)
	ctx := context.Background()
	seedMetrics(t, store, 1)

	first, err := svc.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), first.Date)

	_, err = store.UpsertMetric(ctx, housing.Metric{Date: day(2024, 2, 1)})
	require.NoError(t, err)

	cached, err := svc.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), cached.Date)

	require.NoError(t, svc.Invalidate(ctx))
	fresh, err := svc.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 1), fresh.Date)

	_, err = store.UpsertMetric(ctx, housing.Metric{Date: day(2024, 3, 1)})
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	expired, err := svc.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 1), expired.Date)
}

func TestLatestMetricNotFound(t *testing.T) {
	svc := New(stores(memory.New()), nil, 0, nil)
	_, err := svc.LatestMetric(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = svc.Summary(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRegionalByDateOrLatest(t *testing.T) {
	svc := New(stores(memory.New()), nil, 0, nil)
	store := svc.stores.Regional
	ctx := context.Background()
	for _, d := range []time.Time{day(2025, 1, 1), day(2025, 2, 1)} {
		for _, r := range []string{"Midwest", "Northeast", "South", "West"} {
			_, err := store.UpsertRegional(ctx, housing.RegionalAffordability{Date: d, Region: r})
			require.NoError(t, err)
		}
	}

	latest, err := svc.Regional(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, latest, latestRegional)
	for _, r := range latest {
		assert.Equal(t, day(2025, 2, 1), r.Date)
	}

	jan, err := svc.Regional(ctx, day(2025, 1, 1))
	require.NoError(t, err)
	assert.Len(t, jan, 4)

	none, err := svc.Regional(ctx, day(2020, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSummary(t *testing.T) {
	store := memory.New()
	svc := New(stores(store), nil, 0, nil)
	ctx := context.Background()

	previous := housing.Metric{Date: day(2025, 5, 1), MedianHomeValue: 400000, MortgageRate: 6.5, MedianHouseholdIncome: 80000, AffordabilityIndex: 105}
	current := housing.Metric{Date: day(2025, 6, 1), MedianHomeValue: 408000, MortgageRate: 6.5, MedianHouseholdIncome: 80000, AffordabilityIndex: 105}
	for _, m := range []housing.Metric{previous, current} {
		_, err := store.UpsertMetric(ctx, m)
		require.NoError(t, err)
	}

	old := housing.CrashIndicator{Date: day(2025, 5, 1), VariableName: "Mortgage Rate Level", Points: 15}
	_, err := store.UpsertCrashIndicator(ctx, old)
	require.NoError(t, err)
	for _, ind := range calc.CrashIndicators(current) {
		ind.Date = current.Date
		_, err := store.UpsertCrashIndicator(ctx, ind)
		require.NoError(t, err)
	}

	_, err = store.UpsertHouseholdExpense(ctx, expense.HouseholdExpense{
		Date: day(2025, 6, 1), Category: "Housing", ItemName: "Rent", CurrentPrice: 110, StartPrice: 100, PercentChange: 10,
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.Date, sum.Date)
	assert.Equal(t, calc.HousingHealthIndex(current), sum.Health)

	expectedPoints := 0
	for _, ind := range calc.CrashIndicators(current) {
		expectedPoints += ind.Points
	}
	assert.Equal(t, expectedPoints, sum.CrashRisk.TotalPoints)

	// 2% price growth with flat rates and inventory.
	assert.Equal(t, 2.0, sum.Momentum.PriceMomentum)
	assert.Equal(t, "Accelerating", sum.Momentum.Overall)

	require.NotNil(t, sum.PriceToIncome)
	assert.Equal(t, 5.1, sum.PriceToIncome.Value)
	assert.Equal(t, "Severe", sum.PriceToIncome.Status)

	require.NotNil(t, sum.PaymentToIncome)
	assert.Equal(t, calc.Round(calc.MonthlyPayment(408000*0.8, 6.5, 30), 0), sum.MonthlyPayment)

	require.NotNil(t, sum.ExpenseImpact)
	// 80000 * 0.35 * 10%.
	assert.Equal(t, 2800.0, sum.ExpenseImpact.TotalMonthlyImpact)
}

func TestSummaryWithSingleMetricIsStable(t *testing.T) {
	store := memory.New()
	svc := New(stores(store), nil, 0, nil)
	_, err := store.UpsertMetric(context.Background(), housing.Metric{Date: day(2025, 6, 1), MedianHomeValue: 300000})
	require.NoError(t, err)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stable", sum.Momentum.Overall)
	assert.Nil(t, sum.PriceToIncome, "zero income yields no ratio")
	assert.Nil(t, sum.ExpenseImpact)
	assert.Zero(t, sum.CrashRisk.TotalPoints)
}
