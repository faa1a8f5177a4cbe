package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/memory"
)

const (
	austinID = 394355
	denverID = 394530
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func metroSeries(id int, name string, values map[time.Time]float64) []metro.Value {
	out := make([]metro.Value, 0, len(values))
	for d, v := range values {
		out = append(out, metro.Value{RegionID: id, RegionName: name, RegionType: metro.RegionTypeMSA, Date: d, HomeValue: v})
	}
	return out
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	// Austin falls 10% over the year, Denver rises 10%.
	_, err := store.InsertMetroValues(ctx, metroSeries(austinID, "Austin, TX", map[time.Time]float64{
		day(2024, 3, 31): 500000,
		day(2024, 9, 30): 470000,
		day(2025, 3, 31): 450000,
	}))
	require.NoError(t, err)
	_, err = store.InsertMetroValues(ctx, metroSeries(denverID, "Denver, CO", map[time.Time]float64{
		day(2024, 3, 31): 500000,
		day(2024, 9, 30): 520000,
		day(2025, 3, 31): 550000,
	}))
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC))
	return New(store, store, store, clock, nil), store
}

func createHome(t *testing.T, svc *Service, user string, regionID *int, price, balance float64) advisor.Home {
	t.Helper()
	home, err := svc.CreateHome(context.Background(), advisor.Home{
		UserID:                 user,
		City:                   "Austin",
		State:                  "TX",
		RegionID:               regionID,
		PurchasePrice:          price,
		CurrentMortgageBalance: balance,
	})
	require.NoError(t, err)
	return home
}

func TestCreateHomeValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateHome(ctx, advisor.Home{City: "Austin", State: "TX"})
	assert.Error(t, err)
	_, err = svc.CreateHome(ctx, advisor.Home{UserID: "u1", City: "Austin"})
	assert.Error(t, err)
	_, err = svc.CreateHome(ctx, advisor.Home{UserID: "u1", City: "Austin", State: "TX", PurchasePrice: -1})
	assert.Error(t, err)
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	home := createHome(t, svc, "owner", nil, 300000, 100000)

	_, err := svc.GetHome(ctx, "intruder", home.ID)
	assert.ErrorIs(t, err, ErrHomeNotFound)
	_, err = svc.GetHome(ctx, "owner", "missing")
	assert.ErrorIs(t, err, ErrHomeNotFound)
	assert.ErrorIs(t, svc.DeleteHome(ctx, "intruder", home.ID), ErrHomeNotFound)
	_, err = svc.Analyze(ctx, "intruder", home.ID, "Denver", advisor.SellAndBuy)
	assert.ErrorIs(t, err, ErrHomeNotFound)

	homes, err := svc.ListHomes(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, homes, 1)
	homes, err = svc.ListHomes(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, homes)
}

func TestAddAppraisal(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	home := createHome(t, svc, "u1", nil, 300000, 0)

	_, err := svc.AddAppraisal(ctx, "u1", advisor.Appraisal{HomeID: home.ID})
	assert.Error(t, err)

	a, err := svc.AddAppraisal(ctx, "u1", advisor.Appraisal{HomeID: home.ID, AppraisedValue: 320000})
	require.NoError(t, err)
	assert.Equal(t, day(2025, 4, 20), a.AppraisalDate)

	_, err = svc.AddAppraisal(ctx, "u2", advisor.Appraisal{HomeID: home.ID, AppraisedValue: 1})
	assert.ErrorIs(t, err, ErrHomeNotFound)
}

func TestMetroTrend(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	trend, err := svc.MetroTrend(ctx, denverID)
	require.NoError(t, err)
	require.NotNil(t, trend)
	assert.Equal(t, "Denver, CO", trend.RegionName)
	assert.Equal(t, 550000.0, trend.CurrentValue)
	assert.Equal(t, 520000.0, trend.Value6MonthsAgo)
	assert.Equal(t, 500000.0, trend.Value12MonthsAgo)
	assert.InDelta(t, 10.0, trend.YoYChange, 1e-9)
	assert.Equal(t, metro.Rising, trend.TrendDirection)

	trend, err = svc.MetroTrend(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, trend)
}

func TestMetroTrendWithoutHistoryIsStable(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := store.InsertMetroValues(ctx, metroSeries(7, "Boise, ID", map[time.Time]float64{day(2025, 3, 31): 420000}))
	require.NoError(t, err)

	trend, err := svc.MetroTrend(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 420000.0, trend.Value12MonthsAgo)
	assert.Zero(t, trend.YoYChange)
	assert.Equal(t, metro.Stable, trend.TrendDirection)
}

func TestAnalyzeRecommendsRelocation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	region := austinID
	home := createHome(t, svc, "u1", &region, 400000, 200000)
	_, err := svc.AddAppraisal(ctx, "u1", advisor.Appraisal{HomeID: home.ID, AppraisedValue: 450000, AppraisalDate: day(2025, 1, 1)})
	require.NoError(t, err)

	analysis, err := svc.Analyze(ctx, "u1", home.ID, "denver", advisor.SellAndBuy)
	require.NoError(t, err)
	assert.Equal(t, advisor.Relocate, analysis.Recommendation)
	assert.Equal(t, advisor.High, analysis.Confidence)
	assert.Equal(t, 450000.0, analysis.HomeAnalysis.HomeValue)
	require.NotNil(t, analysis.TargetMetro)
	assert.Equal(t, "Denver, CO", analysis.TargetMetro.RegionName)
	assert.Equal(t, 550000.0, analysis.TargetHomePrice)
	require.NotNil(t, analysis.CurrentMetro)
	assert.Equal(t, metro.Falling, analysis.CurrentMetro.TrendDirection)
}

func TestAnalyzeFallsBackWithoutMetroData(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	home := createHome(t, svc, "u1", nil, 300000, 250000)

	analysis, err := svc.Analyze(ctx, "u1", home.ID, "Nowhere", advisor.KeepAndBuy)
	require.NoError(t, err)
	assert.Nil(t, analysis.CurrentMetro)
	assert.Nil(t, analysis.TargetMetro)
	assert.Equal(t, 300000.0, analysis.TargetHomePrice)
	// Net proceeds 26000 < down payment 60000.
	assert.Equal(t, advisor.Wait, analysis.Recommendation)
	assert.Equal(t, advisor.Low, analysis.Confidence)

	_, err = svc.Analyze(ctx, "u1", home.ID, "Denver", "buy_a_boat")
	assert.ErrorIs(t, err, ErrInvalidScenarioType)
}

func TestScenarioLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	region := denverID
	home := createHome(t, svc, "u1", &region, 500000, 100000)

	sc, err := svc.CreateScenario(ctx, "u1", ScenarioRequest{HomeID: home.ID, TargetCity: "Austin", ScenarioType: advisor.SellAndBuy})
	require.NoError(t, err)
	assert.Equal(t, "Move to Austin", sc.Name)
	require.NotNil(t, sc.TargetRegionID)
	assert.Equal(t, austinID, *sc.TargetRegionID)
	require.NotNil(t, sc.AnalysisResults)
	assert.Equal(t, advisor.Hold, sc.AnalysisResults.Recommendation)

	_, err = svc.GetScenario(ctx, "u2", sc.ID)
	assert.ErrorIs(t, err, ErrScenarioNotFound)

	refreshed, err := svc.RefreshScenario(ctx, "u1", sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, refreshed.ID)

	list, err := svc.ListScenarios(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteScenario(ctx, "u1", sc.ID))
	_, err = svc.GetScenario(ctx, "u1", sc.ID)
	assert.ErrorIs(t, err, ErrScenarioNotFound)

	_, err = svc.CreateScenario(ctx, "u1", ScenarioRequest{HomeID: home.ID, ScenarioType: advisor.SellAndBuy})
	assert.Error(t, err)
}

func TestFindMetro(t *testing.T) {
	svc, _ := newService(t)
	region, err := svc.FindMetro(context.Background(), "aust")
	require.NoError(t, err)
	assert.Equal(t, austinID, region.RegionID)

	metros, err := svc.ListMetros(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, metros, 2)
}
