package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

const (
	expenseObservations  = 24
	regionalObservations = 2
)

// builderBaseline is the earliest date considered when picking a material's
// start price.
var builderBaseline = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// SyncAll refreshes builder, household and regional tables in parallel from
// the latest stored metric, then derives crash indicators and the composite
// economic index from it.
func (s *Service) SyncAll(ctx context.Context) (Report, error) {
	return s.run(ctx, JobSyncAll, func(ctx context.Context, t *tally) (*housing.Metric, error) {
		latest, err := s.stores.Metrics.LatestMetric(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoMetrics
		}
		if err != nil {
			return nil, fmt.Errorf("load latest metric: %w", err)
		}

		today := s.today()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.syncBuilder(gctx, t, today) })
		g.Go(func() error { return s.syncHousehold(gctx, t, today) })
		g.Go(func() error { return s.syncRegional(gctx, t, today, latest.MortgageRate) })
		if err := g.Wait(); err != nil {
			return &latest, err
		}

		s.syncCrashIndicators(ctx, t, today, latest)
		s.syncEconomicIndex(ctx, t, today, latest)
		return &latest, nil
	})
}

// fetch returns the observations of series, or nil after logging when the
// request failed. Only context cancellation is propagated.
func (s *Service) fetch(ctx context.Context, series string, q fred.Query) ([]fred.Observation, error) {
	obs, err := s.source.Observations(ctx, series, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.WithError(err).WithField("series", series).Warn("fred fetch failed")
		return nil, nil
	}
	return obs, nil
}

func (s *Service) syncBuilder(ctx context.Context, t *tally, today time.Time) error {
	const table = "builder_expenses"
	for _, material := range fred.Materials {
		obs, err := s.fetch(ctx, material.Series, fred.Query{Limit: expenseObservations, Desc: true})
		if err != nil {
			return err
		}
		if len(obs) == 0 {
			s.log.WithField("material", material.Name).Warn("no observations for material")
			t.skip(table)
			continue
		}

		current := obs[0].Value
		start := baselineObservation(obs).Value
		trend, err := calc.BuilderCostTrend(current, start, max(1, len(obs)))
		if err != nil {
			s.log.WithError(err).WithField("material", material.Name).Warn("builder trend failed")
			t.fail(table)
			continue
		}

		if _, err := s.stores.Expenses.UpsertBuilderExpense(ctx, expense.BuilderExpense{
			Date:          today,
			MaterialName:  material.Name,
			CurrentPrice:  current,
			StartPrice:    start,
			PercentChange: trend.PercentChange,
			TotalChange:   current - start,
			Status:        trend.Status,
		}); err != nil {
			s.log.WithError(err).WithField("material", material.Name).Warn("store builder expense failed")
			t.fail(table)
			continue
		}
		t.ok(table)
	}
	return nil
}

// baselineObservation picks the oldest observation on or after
// builderBaseline from a newest-first slice, or the oldest overall.
func baselineObservation(obs []fred.Observation) fred.Observation {
	for i := len(obs) - 1; i >= 0; i-- {
		if !obs[i].Date.Before(builderBaseline) {
			return obs[i]
		}
	}
	return obs[len(obs)-1]
}

func (s *Service) syncHousehold(ctx context.Context, t *tally, today time.Time) error {
	const table = "household_expenses"
	yearAgo := today.AddDate(-1, 0, 0)
	for _, item := range fred.HouseholdItems {
		obs, err := s.fetch(ctx, item.Series, fred.Query{Limit: expenseObservations, Desc: true})
		if err != nil {
			return err
		}
		if len(obs) < 2 {
			s.log.WithField("item", item.Name).Warn("insufficient observations for household item")
			t.skip(table)
			continue
		}

		current := obs[0].Value
		start := obs[len(obs)-1].Value
		for _, o := range obs {
			if !o.Date.After(yearAgo) {
				start = o.Value
				break
			}
		}
		if start == 0 {
			s.log.WithField("item", item.Name).Warn("zero start price for household item")
			t.fail(table)
			continue
		}

		if _, err := s.stores.Expenses.UpsertHouseholdExpense(ctx, expense.HouseholdExpense{
			Date:          today,
			Category:      item.Category,
			ItemName:      item.Name,
			CurrentPrice:  current,
			StartPrice:    start,
			PercentChange: calc.Round((current-start)/start*100, 1),
		}); err != nil {
			s.log.WithError(err).WithField("item", item.Name).Warn("store household expense failed")
			t.fail(table)
			continue
		}
		t.ok(table)
	}
	return nil
}

func (s *Service) syncRegional(ctx context.Context, t *tally, today time.Time, mortgageRate float64) error {
	const table = "regional_affordability"
	for _, region := range fred.Regions {
		obs, err := s.fetch(ctx, region.Series, fred.Query{Limit: regionalObservations, Desc: true})
		if err != nil {
			return err
		}
		latest, ok := fred.Latest(obs)
		if !ok {
			s.log.WithField("region", region.Name).Warn("no observations for region")
			t.skip(table)
			continue
		}

		income := fred.NationalMedianIncome * region.IncomeAdjustment
		afford := calc.RegionalAffordability(latest.Value, income, mortgageRate)
		if _, err := s.stores.Regional.UpsertRegional(ctx, housing.RegionalAffordability{
			Date:                   today,
			Region:                 region.Name,
			MedianHomePrice:        latest.Value,
			MedianQualifyingIncome: afford.QualifyingIncome,
			MedianFamilyIncome:     math.Round(income),
			MedianMortgagePayment:  afford.MonthlyPayment,
			AffordabilityScore:     afford.AffordabilityScore,
		}); err != nil {
			s.log.WithError(err).WithField("region", region.Name).Warn("store regional affordability failed")
			t.fail(table)
			continue
		}
		t.ok(table)
	}
	return nil
}

func (s *Service) syncCrashIndicators(ctx context.Context, t *tally, today time.Time, m housing.Metric) {
	const table = "crash_indicators"
	for _, ind := range calc.CrashIndicators(m) {
		ind.Date = today
		if _, err := s.stores.Crash.UpsertCrashIndicator(ctx, ind); err != nil {
			s.log.WithError(err).WithField("indicator", ind.VariableName).Warn("store crash indicator failed")
			t.fail(table)
			continue
		}
		t.ok(table)
	}
}

// syncEconomicIndex compares today's composite index against the newest row
// dated before today.
func (s *Service) syncEconomicIndex(ctx context.Context, t *tally, today time.Time, m housing.Metric) {
	const table = "economic_index"
	value := calc.CompositeEconomicIndex(m)
	idx := housing.EconomicIndex{Date: today, IndexValue: value}

	recent, err := s.stores.Index.RecentEconomicIndex(ctx, 2)
	if err != nil {
		s.log.WithError(err).Warn("load previous economic index failed")
	}
	for _, prev := range recent {
		if !prev.Date.Before(today) {
			continue
		}
		idx.MoMChange = calc.Round(value-prev.IndexValue, 1)
		if prev.IndexValue != 0 {
			idx.MoMPercent = calc.Round((value-prev.IndexValue)/prev.IndexValue*100, 1)
		}
		break
	}

	if _, err := s.stores.Index.UpsertEconomicIndex(ctx, idx); err != nil {
		s.log.WithError(err).Warn("store economic index failed")
		t.fail(table)
		return
	}
	t.ok(table)
}
