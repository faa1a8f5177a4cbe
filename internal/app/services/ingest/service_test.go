package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/memory"
	"github.com/alpex-ai/housing-intelligence/internal/config"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeSource serves canned observations, newest first. Series without an
// entry fall back to defaults when set.
type fakeSource struct {
	series   map[string][]fred.Observation
	defaults []fred.Observation
	fail     map[string]bool
}

func (f *fakeSource) Observations(_ context.Context, id string, q fred.Query) ([]fred.Observation, error) {
	if f.fail[id] {
		return nil, errors.New("boom")
	}
	obs, ok := f.series[id]
	if !ok {
		obs = f.defaults
	}
	out := make([]fred.Observation, 0, len(obs))
	for _, o := range obs {
		if !q.Start.IsZero() && o.Date.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && o.Date.After(q.End) {
			continue
		}
		out = append(out, o)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeSource) FetchMany(ctx context.Context, ids []string, q fred.Query) map[string][]fred.Observation {
	out := make(map[string][]fred.Observation, len(ids))
	for _, id := range ids {
		obs, err := f.Observations(ctx, id, q)
		if err != nil {
			obs = []fred.Observation{}
		}
		out[id] = obs
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newService(t *testing.T, src fred.Source) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	stores := Stores{Metrics: store, Regional: store, Expenses: store, Crash: store, Index: store}
	return New(stores, src, clockwork.NewFakeClockAt(now), nil), store
}

func TestSyncFREDRequiresSource(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.SyncFRED(context.Background())
	require.ErrorIs(t, err, fred.ErrMissingAPIKey)
}

func TestSyncFREDStoresTodaysSnapshot(t *testing.T) {
	src := &fakeSource{
		series: map[string][]fred.Observation{
			fred.SeriesMedianHomePrice: {{Date: day(2025, 4, 1), Value: 420000}},
			fred.SeriesMortgageRate30Y: {{Date: day(2025, 6, 12), Value: 6.81}},
		},
		fail: map[string]bool{fred.SeriesFedFunds: true},
	}
	svc, store := newService(t, src)

	var hooked []Report
	svc.OnComplete(func(_ context.Context, r Report) { hooked = append(hooked, r) })

	report, err := svc.SyncFRED(context.Background())
	require.NoError(t, err)
	assert.Equal(t, JobSyncFRED, report.Job)
	assert.Equal(t, 1, report.Upserted)
	require.NotNil(t, report.Metric)
	assert.Equal(t, day(2025, 6, 15), report.Metric.Date)

	latest, err := store.LatestMetric(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 420000.0, latest.MedianHomeValue)
	assert.Equal(t, 6.81, latest.MortgageRate)
	assert.Zero(t, latest.FedFundsRate)
	assert.Zero(t, latest.BuildingPermits)
	require.Len(t, hooked, 1)

	// Same day replaces the row.
	_, err = svc.SyncFRED(context.Background())
	require.NoError(t, err)
	rows, _ := store.RecentMetrics(context.Background(), 10)
	assert.Len(t, rows, 1)
}

func TestSyncAllRequiresMetrics(t *testing.T) {
	svc, _ := newService(t, &fakeSource{})
	called := false
	svc.OnComplete(func(context.Context, Report) { called = true })

	_, err := svc.SyncAll(context.Background())
	require.ErrorIs(t, err, ErrNoMetrics)
	assert.False(t, called)
}

func TestSyncAllWritesDerivedTables(t *testing.T) {
	src := &fakeSource{defaults: []fred.Observation{
		{Date: day(2025, 5, 1), Value: 110},
		{Date: day(2024, 3, 1), Value: 100},
	}}
	svc, store := newService(t, src)
	ctx := context.Background()

	metric := housing.Metric{
		Date:                  day(2025, 6, 14),
		MedianHomeValue:       400000,
		MortgageRate:          6.5,
		CoreInflation:         3.2,
		AffordabilityIndex:    98,
		MedianHouseholdIncome: 80000,
		BuildingPermits:       1400,
	}
	_, err := store.UpsertMetric(ctx, metric)
	require.NoError(t, err)
	_, err = store.UpsertEconomicIndex(ctx, housing.EconomicIndex{Date: day(2025, 5, 15), IndexValue: 50})
	require.NoError(t, err)

	report, err := svc.SyncAll(ctx)
	require.NoError(t, err)

	indicators := calc.CrashIndicators(metric)
	want := len(fred.Materials) + len(fred.HouseholdItems) + len(fred.Regions) + len(indicators) + 1
	assert.Equal(t, want, report.Upserted)
	assert.Zero(t, report.Failed)

	today := storage.ListOptions{Date: day(2025, 6, 15)}
	builder, _ := store.ListBuilderExpenses(ctx, today)
	require.Len(t, builder, len(fred.Materials))
	assert.Equal(t, 110.0, builder[0].CurrentPrice)
	assert.Equal(t, 100.0, builder[0].StartPrice)
	assert.Equal(t, 10.0, builder[0].PercentChange)

	household, _ := store.ListHouseholdExpenses(ctx, today)
	require.Len(t, household, len(fred.HouseholdItems))
	assert.Equal(t, 10.0, household[0].PercentChange)

	regional, _ := store.ListRegional(ctx, today)
	assert.Len(t, regional, len(fred.Regions))

	crash, _ := store.ListCrashIndicators(ctx, today)
	assert.Len(t, crash, len(indicators))

	idx, err := store.GetEconomicIndex(ctx, day(2025, 6, 15))
	require.NoError(t, err)
	value := calc.CompositeEconomicIndex(metric)
	assert.Equal(t, value, idx.IndexValue)
	assert.InDelta(t, calc.Round(value-50, 1), idx.MoMChange, 1e-9)
}

// rejectingExpenses fails builder upserts for one material.
type rejectingExpenses struct {
	*memory.Store
	material string
}

func (r rejectingExpenses) UpsertBuilderExpense(ctx context.Context, e expense.BuilderExpense) (expense.BuilderExpense, error) {
	if e.MaterialName == r.material {
		return expense.BuilderExpense{}, errors.New("constraint violation")
	}
	return r.Store.UpsertBuilderExpense(ctx, e)
}

func TestSyncAllContinuesPastFailedUpsert(t *testing.T) {
	src := &fakeSource{defaults: []fred.Observation{
		{Date: day(2025, 5, 1), Value: 110},
		{Date: day(2024, 3, 1), Value: 100},
	}}
	store := memory.New()
	rejected := fred.Materials[0].Name
	stores := Stores{
		Metrics:  store,
		Regional: store,
		Expenses: rejectingExpenses{Store: store, material: rejected},
		Crash:    store,
		Index:    store,
	}
	svc := New(stores, src, clockwork.NewFakeClockAt(now), nil)
	ctx := context.Background()

	metric := housing.Metric{
		Date:                  day(2025, 6, 14),
		MedianHomeValue:       400000,
		MortgageRate:          6.5,
		AffordabilityIndex:    98,
		MedianHouseholdIncome: 80000,
	}
	_, err := store.UpsertMetric(ctx, metric)
	require.NoError(t, err)

	report, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	indicators := calc.CrashIndicators(metric)
	want := len(fred.Materials) - 1 + len(fred.HouseholdItems) + len(fred.Regions) + len(indicators) + 1
	assert.Equal(t, want, report.Upserted)

	builder, err := store.ListBuilderExpenses(ctx, storage.ListOptions{Date: day(2025, 6, 15)})
	require.NoError(t, err)
	require.Len(t, builder, len(fred.Materials)-1)
	for _, row := range builder {
		assert.NotEqual(t, rejected, row.MaterialName)
	}

	household, _ := store.ListHouseholdExpenses(ctx, storage.ListOptions{Date: day(2025, 6, 15)})
	assert.Len(t, household, len(fred.HouseholdItems))
}

func TestSyncAllSkipsSeriesWithoutData(t *testing.T) {
	src := &fakeSource{}
	svc, store := newService(t, src)
	ctx := context.Background()
	_, err := store.UpsertMetric(ctx, housing.Metric{Date: day(2025, 6, 1), MortgageRate: 6.8})
	require.NoError(t, err)

	report, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(fred.Materials)+len(fred.HouseholdItems)+len(fred.Regions), report.Skipped)
	assert.Equal(t, len(calc.CrashIndicators(housing.Metric{}))+1, report.Upserted)
}

func TestBaselineObservationPicksOldestSince2020(t *testing.T) {
	obs := []fred.Observation{
		{Date: day(2025, 1, 1), Value: 3},
		{Date: day(2020, 2, 1), Value: 2},
		{Date: day(2019, 12, 1), Value: 1},
	}
	assert.Equal(t, 2.0, baselineObservation(obs).Value)
	assert.Equal(t, 1.0, baselineObservation(obs[2:]).Value)
}

func TestMergeHistoryFillsDefaults(t *testing.T) {
	rows := mergeHistory(map[string][]fred.Observation{
		fred.SeriesMortgageRate30Y: {
			{Date: day(2025, 2, 1), Value: 6.9},
			{Date: day(2025, 1, 1), Value: 6.7},
		},
		fred.SeriesHouseholdIncome: {{Date: day(2025, 1, 1), Value: 81000}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, day(2025, 1, 1), rows[0].Date)
	assert.Equal(t, 6.7, rows[0].MortgageRate)
	assert.Equal(t, 81000.0, rows[0].MedianHouseholdIncome)
	assert.Equal(t, float64(fallbackHouseholdIncome), rows[1].MedianHouseholdIncome)
	assert.Equal(t, float64(fallbackAffordability), rows[1].AffordabilityIndex)
	assert.Zero(t, rows[1].MedianHomeValue)
}

func TestSyncHistoryBackfills(t *testing.T) {
	src := &fakeSource{
		series: map[string][]fred.Observation{
			fred.SeriesMortgageRate30Y: {
				{Date: day(2025, 5, 1), Value: 6.9},
				{Date: day(2024, 5, 1), Value: 7.1},
				{Date: day(2020, 5, 1), Value: 3.1},
			},
		},
		defaults: []fred.Observation{{Date: day(2025, 5, 1), Value: 350000}},
	}
	svc, store := newService(t, src)
	ctx := context.Background()

	for _, e := range []expense.HouseholdExpense{
		{Date: day(2025, 5, 1), Category: "Housing", ItemName: "Rent", CurrentPrice: 110, StartPrice: 100},
		{Date: day(2025, 5, 1), Category: "Food", ItemName: "Eggs", CurrentPrice: 120, StartPrice: 100},
	} {
		_, err := store.UpsertHouseholdExpense(ctx, e)
		require.NoError(t, err)
	}

	report, err := svc.SyncHistory(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, report.Metric)
	assert.Equal(t, day(2025, 5, 1), report.Metric.Date)

	metrics, _ := store.RecentMetrics(ctx, 10)
	assert.Len(t, metrics, 2, "observations older than two years are excluded")

	regional, _ := store.ListRegional(ctx, storage.ListOptions{Date: day(2025, 5, 1)})
	assert.Len(t, regional, len(fred.Regions))

	idx, err := store.GetEconomicIndex(ctx, day(2025, 5, 1))
	require.NoError(t, err)
	assert.InDelta(t, 115.0, idx.IndexValue, 1e-9)

	// A second run keeps the existing index row.
	report, err = svc.SyncHistory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestSchedulerLifecycle(t *testing.T) {
	svc, _ := newService(t, &fakeSource{})
	jobs := &config.JobsConfig{Jobs: map[string]*config.JobSettings{
		config.JobSyncFRED: {Enabled: true, Schedule: "0 6 * * *"},
		config.JobSyncAll:  {Enabled: false, Schedule: "0 7 * * *"},
	}}
	sched := NewScheduler(svc, jobs, nil)
	assert.Equal(t, "ingest-scheduler", sched.Name())
	assert.Equal(t, []string{config.JobSyncFRED}, sched.enabledJobs())

	require.NoError(t, sched.Start(context.Background()))
	require.NoError(t, sched.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(ctx))
	require.NoError(t, sched.Stop(ctx))
}

func TestSchedulerRejectsBadJobs(t *testing.T) {
	svc, _ := newService(t, &fakeSource{})

	unknown := NewScheduler(svc, &config.JobsConfig{Jobs: map[string]*config.JobSettings{
		"rebuild-everything": {Enabled: true, Schedule: "@daily"},
	}}, nil)
	assert.Error(t, unknown.Start(context.Background()))

	badSpec := NewScheduler(svc, &config.JobsConfig{Jobs: map[string]*config.JobSettings{
		config.JobSyncAll: {Enabled: true, Schedule: "not a schedule"},
	}}, nil)
	assert.Error(t, badSpec.Start(context.Background()))
}
