package app

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpex-ai/housing-intelligence/internal/app/cache"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/memory"
	"github.com/alpex-ai/housing-intelligence/internal/app/system"
	"github.com/alpex-ai/housing-intelligence/internal/config"
)

type namedService string

func (n namedService) Name() string                { return string(n) }
func (n namedService) Start(context.Context) error { return nil }
func (n namedService) Stop(context.Context) error  { return nil }

var _ system.Service = namedService("")

type rateSource struct{ rate float64 }

func (s rateSource) Observations(context.Context, string, fred.Query) ([]fred.Observation, error) {
	return []fred.Observation{{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Value: s.rate}}, nil
}

func (s rateSource) FetchMany(ctx context.Context, ids []string, q fred.Query) map[string][]fred.Observation {
	out := make(map[string][]fred.Observation, len(ids))
	for _, id := range ids {
		out[id], _ = s.Observations(ctx, id, q)
	}
	return out
}

func TestNewDefaultsToMemoryStores(t *testing.T) {
	application, err := New(Stores{}, Options{}, nil)
	require.NoError(t, err)

	assert.Empty(t, application.Services())
	assert.Nil(t, application.Scheduler)

	require.NoError(t, application.Start(context.Background()))
	require.NoError(t, application.Stop(context.Background()))
}

func TestNewRegistersScheduler(t *testing.T) {
	jobs := config.DefaultJobsConfig(config.SchedulerConfig{SyncFRED: "0 9 * * *"})
	application, err := New(Stores{}, Options{Jobs: jobs}, nil)
	require.NoError(t, err)
	require.NotNil(t, application.Scheduler)
	assert.Contains(t, application.Services(), "ingest-scheduler")

	require.NoError(t, application.Attach(namedService("extra")))
	require.Error(t, application.Attach(namedService("extra")))
	assert.Equal(t, []string{"ingest-scheduler", "extra"}, application.Services())
}

func TestSyncInvalidatesDashboardCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))
	store := memory.New()
	_, err := store.UpsertMetric(ctx, housing.Metric{Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), MortgageRate: 7.1})
	require.NoError(t, err)

	application, err := New(Stores{Metrics: store}, Options{
		Source: rateSource{rate: 6.4},
		Cache:  cache.NewMemory(clock),
		Clock:  clock,
	}, nil)
	require.NoError(t, err)

	first, err := application.Dashboard.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.1, first.MortgageRate)

	_, err = store.UpsertMetric(ctx, housing.Metric{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), MortgageRate: 6.9})
	require.NoError(t, err)
	cached, err := application.Dashboard.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.1, cached.MortgageRate)

	_, err = application.Ingest.SyncFRED(ctx)
	require.NoError(t, err)

	fresh, err := application.Dashboard.LatestMetric(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.4, fresh.MortgageRate)
	assert.Equal(t, housing.Day(clock.Now()), fresh.Date)
}

func TestSeedInvalidatesDashboardCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))
	application, err := New(Stores{}, Options{
		Cache: cache.NewMemory(clock),
		Clock: clock,
		Rand:  rand.New(rand.NewSource(11)),
	}, nil)
	require.NoError(t, err)

	before, err := application.Dashboard.Regional(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, before)

	report, err := application.Seed.SeedAll(ctx)
	require.NoError(t, err)
	require.Positive(t, report.Regional)

	after, err := application.Dashboard.Regional(ctx, time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, after)

	index, err := application.Dashboard.EconomicIndex(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, index, report.Index)
}
