// Package ingest runs the jobs that pull FRED series into the housing tables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/metrics"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// Job names reported in Report.Job.
const (
	JobSyncFRED    = "sync-fred"
	JobSyncAll     = "sync-all"
	JobSyncHistory = "sync-history"
)

// ErrNoMetrics is returned by SyncAll when no housing metric row exists yet.
var ErrNoMetrics = errors.New("No housing metrics found. Run FRED sync first.")

// Stores groups the tables written by the ingestion jobs.
type Stores struct {
	Metrics  storage.MetricStore
	Regional storage.RegionalStore
	Expenses storage.ExpenseStore
	Crash    storage.CrashStore
	Index    storage.EconomicIndexStore
}

// Report summarises one job run. Per-record failures are counted, not
// returned.
type Report struct {
	Job      string          `json:"job"`
	Upserted int             `json:"upserted"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Metric   *housing.Metric `json:"metric,omitempty"`
}

// Service runs ingestion jobs.
type Service struct {
	stores Stores
	source fred.Source
	clock  clockwork.Clock
	log    *logger.Logger

	mu        sync.Mutex
	listeners []func(context.Context, Report)
}

// New constructs the ingestion service. A nil source makes every job fail
// with fred.ErrMissingAPIKey.
func New(stores Stores, source fred.Source, clock clockwork.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault("ingest")
	}
	return &Service{stores: stores, source: source, clock: clock, log: log}
}

// OnComplete registers fn to run after every successful job.
func (s *Service) OnComplete(fn func(context.Context, Report)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Service) today() time.Time {
	return housing.Day(s.clock.Now())
}

// run wraps a job with timing, metrics and completion hooks.
func (s *Service) run(ctx context.Context, job string, fn func(context.Context, *tally) (*housing.Metric, error)) (Report, error) {
	report := Report{Job: job, Started: s.clock.Now().UTC()}
	if s.source == nil {
		report.Finished = s.clock.Now().UTC()
		metrics.RecordSyncRun(job, 0, false)
		return report, fred.ErrMissingAPIKey
	}

	t := &tally{}
	metric, err := fn(ctx, t)
	report.Upserted, report.Failed, report.Skipped = t.totals()
	report.Metric = metric
	report.Finished = s.clock.Now().UTC()
	metrics.RecordSyncRun(job, report.Finished.Sub(report.Started), err == nil)

	entry := s.log.WithField("job", job).
		WithField("upserted", report.Upserted).
		WithField("failed", report.Failed).
		WithField("skipped", report.Skipped)
	if err != nil {
		entry.WithError(err).Error("sync job failed")
		return report, err
	}
	entry.Info("sync job finished")

	s.mu.Lock()
	listeners := append([]func(context.Context, Report){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, report)
	}
	return report, nil
}

// tally counts record outcomes. Sub-jobs of SyncAll share one tally
// concurrently.
type tally struct {
	mu       sync.Mutex
	upserted int
	failed   int
	skipped  int
}

func (t *tally) ok(table string) {
	t.mu.Lock()
	t.upserted++
	t.mu.Unlock()
	metrics.RecordSyncRecords(table, "upserted", 1)
}

func (t *tally) fail(table string) {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
	metrics.RecordSyncRecords(table, "failed", 1)
}

func (t *tally) skip(table string) {
	t.mu.Lock()
	t.skipped++
	t.mu.Unlock()
	metrics.RecordSyncRecords(table, "skipped", 1)
}

func (t *tally) totals() (int, int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.upserted, t.failed, t.skipped
}

// SyncFRED stores today's snapshot of the national series. Series that fail
// to load are stored as zero; a failed write fails the job.
func (s *Service) SyncFRED(ctx context.Context) (Report, error) {
	return s.run(ctx, JobSyncFRED, func(ctx context.Context, t *tally) (*housing.Metric, error) {
		obs := s.source.FetchMany(ctx, fred.CurrentSeries, fred.Query{Limit: 1, Desc: true})
		latest := func(series string) float64 {
			o, ok := fred.Latest(obs[series])
			if !ok {
				return 0
			}
			return o.Value
		}

		metric := housing.Metric{
			Date:                   s.today(),
			MedianHomeValue:        latest(fred.SeriesMedianHomePrice),
			MedianNewHomeSalePrice: latest(fred.SeriesNewHomePrice),
			MortgageRate:           latest(fred.SeriesMortgageRate30Y),
			FedFundsRate:           latest(fred.SeriesFedFunds),
			TreasuryYield10Y:       latest(fred.SeriesTreasury10Y),
			CoreInflation:          latest(fred.SeriesCoreCPI),
			AffordabilityIndex:     latest(fred.SeriesAffordabilityIndex),
			MedianHouseholdIncome:  latest(fred.SeriesHouseholdIncome),
			BuildingPermits:        latest(fred.SeriesBuildingPermits),
		}

		stored, err := s.stores.Metrics.UpsertMetric(ctx, metric)
		if err != nil {
			t.fail("housing_metrics")
			return nil, fmt.Errorf("store housing metric: %w", err)
		}
		t.ok("housing_metrics")
		return &stored, nil
	})
}
