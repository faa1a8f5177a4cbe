package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

const (
	defaultHistoryYears     = 2
	historyMortgageRate     = 6.11
	fallbackHouseholdIncome = 80610
	fallbackAffordability   = 100
	historyExpenseWindow    = 100
)

// SyncHistory backfills the last years of national metrics and regional
// affordability, then derives economic index rows from stored household
// expenses. years <= 0 uses two years.
func (s *Service) SyncHistory(ctx context.Context, years int) (Report, error) {
	if years <= 0 {
		years = defaultHistoryYears
	}
	return s.run(ctx, JobSyncHistory, func(ctx context.Context, t *tally) (*housing.Metric, error) {
		end := s.today()
		q := fred.Query{Start: end.AddDate(-years, 0, 0), End: end}

		rows := mergeHistory(s.source.FetchMany(ctx, fred.HistorySeries, q))
		for _, m := range rows {
			if _, err := s.stores.Metrics.UpsertMetric(ctx, m); err != nil {
				s.log.WithError(err).WithField("date", m.Date.Format(housing.DateLayout)).Warn("store historical metric failed")
				t.fail("housing_metrics")
				continue
			}
			t.ok("housing_metrics")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.backfillRegional(ctx, t, q)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.backfillEconomicIndex(ctx, t); err != nil {
			return nil, err
		}

		if len(rows) == 0 {
			return nil, nil
		}
		last := rows[len(rows)-1]
		return &last, nil
	})
}

// mergeHistory unions the dates of every series and builds one metric per
// date, oldest first. Missing values default to zero, except affordability
// (100) and household income (80610).
func mergeHistory(series map[string][]fred.Observation) []housing.Metric {
	byDate := make(map[string]map[string]float64)
	for id, obs := range series {
		for _, o := range obs {
			key := o.Date.Format(housing.DateLayout)
			if byDate[key] == nil {
				byDate[key] = make(map[string]float64)
			}
			byDate[key][id] = o.Value
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]housing.Metric, 0, len(dates))
	for _, d := range dates {
		values := byDate[d]
		get := func(id string, def float64) float64 {
			if v, ok := values[id]; ok {
				return v
			}
			return def
		}
		date, _ := housing.ParseDay(d)
		out = append(out, housing.Metric{
			Date:                     date,
			MedianHomeValue:          get(fred.SeriesMedianHomePrice, 0),
			MedianNewHomeSalePrice:   get(fred.SeriesNewHomePrice, 0),
			MortgageRate:             get(fred.SeriesMortgageRate30Y, 0),
			FedFundsRate:             get(fred.SeriesFedFunds, 0),
			TreasuryYield10Y:         get(fred.SeriesTreasury10Y, 0),
			CoreInflation:            get(fred.SeriesStickyCoreCPI, 0),
			TotalInventory:           get(fred.SeriesActiveListings, 0),
			NewConstructionInventory: get(fred.SeriesNewConstructionInv, 0),
			BuildingPermits:          get(fred.SeriesBuildingPermits, 0),
			AffordabilityIndex:       get(fred.SeriesHousingAffordability, fallbackAffordability),
			MedianHouseholdIncome:    get(fred.SeriesHouseholdIncome, fallbackHouseholdIncome),
		})
	}
	return out
}

func (s *Service) backfillRegional(ctx context.Context, t *tally, q fred.Query) {
	const table = "regional_affordability"

	income := float64(fallbackHouseholdIncome)
	if latest, err := s.stores.Metrics.LatestMetric(ctx); err == nil && latest.MedianHouseholdIncome != 0 {
		income = latest.MedianHouseholdIncome
	}

	ids := make([]string, 0, len(fred.Regions))
	for _, r := range fred.Regions {
		ids = append(ids, r.HistorySeries)
	}
	series := s.source.FetchMany(ctx, ids, q)

	for _, region := range fred.Regions {
		for _, point := range series[region.HistorySeries] {
			afford := calc.AffordabilityMetrics(point.Value, historyMortgageRate, income, 0)
			if _, err := s.stores.Regional.UpsertRegional(ctx, housing.RegionalAffordability{
				Date:                   point.Date,
				Region:                 region.Name,
				MedianHomePrice:        point.Value,
				MedianQualifyingIncome: afford.QualifyingIncome,
				MedianFamilyIncome:     income,
				MedianMortgagePayment:  afford.MonthlyPayment,
				AffordabilityScore:     afford.AffordabilityScore,
			}); err != nil {
				s.log.WithError(err).
					WithField("region", region.Name).
					WithField("date", point.Date.Format(housing.DateLayout)).
					Warn("store historical regional row failed")
				t.fail(table)
				continue
			}
			t.ok(table)
		}
	}
}

// backfillEconomicIndex computes an expense-weighted index for every recent
// household expense date that has no index yet.
func (s *Service) backfillEconomicIndex(ctx context.Context, t *tally) error {
	const table = "economic_index"

	expenses, err := s.stores.Expenses.ListHouseholdExpenses(ctx, storage.ListOptions{Limit: historyExpenseWindow})
	if err != nil {
		return fmt.Errorf("load household expenses: %w", err)
	}
	if len(expenses) == 0 {
		s.log.Info("no household expenses to derive an economic index from")
		return nil
	}

	byDate := make(map[time.Time][]expense.HouseholdExpense)
	for _, e := range expenses {
		day := housing.Day(e.Date)
		byDate[day] = append(byDate[day], e)
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, date := range dates {
		if _, err := s.stores.Index.GetEconomicIndex(ctx, date); err == nil {
			t.skip(table)
			continue
		}
		value, ok := calc.ExpenseIndex(byDate[date])
		if !ok {
			t.skip(table)
			continue
		}

		idx := housing.EconomicIndex{Date: date, IndexValue: value}
		if prev, err := s.stores.Index.GetEconomicIndex(ctx, date.AddDate(0, -1, 0)); err == nil {
			idx.MoMChange = value - prev.IndexValue
			if prev.IndexValue != 0 {
				idx.MoMPercent = idx.MoMChange / prev.IndexValue * 100
			}
		}
		if _, err := s.stores.Index.UpsertEconomicIndex(ctx, idx); err != nil {
			s.log.WithError(err).WithField("date", date.Format(housing.DateLayout)).Warn("store economic index failed")
			t.fail(table)
			continue
		}
		t.ok(table)
	}
	return nil
}
