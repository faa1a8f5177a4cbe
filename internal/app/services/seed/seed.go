// Package seed fills the dashboard tables with synthetic twelve-month
// histories for demos and local development.
package seed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

const (
	historyMonths    = 12
	builderMonths    = 60
	householdMonths  = 60
	shortTrendMonths = 24
	monthlyTrend     = 0.003
	householdVol     = 0.04
	regionalPriceVol = 0.06
	regionalIncVol   = 0.025
	indexVol         = 0.04
	seedMortgageRate = 6.5
)

// Stores groups the tables written by the seeder.
type Stores struct {
	Regional storage.RegionalStore
	Expenses storage.ExpenseStore
	Crash    storage.CrashStore
	Index    storage.EconomicIndexStore
}

// Report counts rows written per table.
type Report struct {
	Builder   int `json:"builder_expenses"`
	Household int `json:"household_expenses"`
	Crash     int `json:"crash_indicators"`
	Regional  int `json:"regional_affordability"`
	Index     int `json:"economic_index"`
	Failed    int `json:"failed"`
}

// Service generates synthetic data.
type Service struct {
	stores Stores
	clock  clockwork.Clock
	log    *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand

	listenersMu sync.Mutex
	listeners   []func(context.Context, Report)
}

// New constructs a seeder. A nil rng is seeded from the clock.
func New(stores Stores, clock clockwork.Clock, rng *rand.Rand, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}
	if log == nil {
		log = logger.NewDefault("seed")
	}
	return &Service{stores: stores, clock: clock, rng: rng, log: log}
}

// OnComplete registers fn to run after every successful SeedAll.
func (s *Service) OnComplete(fn func(context.Context, Report)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// SeedAll writes builder, household, crash, regional and economic index
// histories. Per-row failures are logged and counted; only context
// cancellation aborts the run.
func (s *Service) SeedAll(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report
	today := housing.Day(s.clock.Now())
	steps := []func(context.Context, time.Time, *Report){
		s.seedBuilder,
		s.seedHousehold,
		s.seedCrash,
		s.seedRegional,
		s.seedIndex,
	}
	for _, step := range steps {
		step(ctx, today, &report)
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	s.log.WithFields(map[string]interface{}{
		"builder":   report.Builder,
		"household": report.Household,
		"crash":     report.Crash,
		"regional":  report.Regional,
		"index":     report.Index,
		"failed":    report.Failed,
	}).Info("seed data written")

	s.listenersMu.Lock()
	listeners := append([]func(context.Context, Report){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(ctx, report)
	}
	return report, nil
}

// priceTrend walks from base for the given months with a small upward drift.
// Months 13-23 and 24-35 move faster.
func (s *Service) priceTrend(base float64, months int, volatility float64, highVolatility bool) []float64 {
	if highVolatility {
		volatility *= 2.5
	}
	prices := make([]float64, 0, months)
	price := base
	for i := 0; i < months; i++ {
		change := (s.rng.Float64()-0.48)*volatility + monthlyTrend
		switch {
		case i > 12 && i < 24:
			change *= 1.5
		case i >= 24 && i < 36:
			change *= 1.8
		}
		price *= 1 + change
		prices = append(prices, calc.Round(price, 2))
	}
	return prices
}

func monthsAgo(today time.Time, i int) time.Time {
	return today.AddDate(0, -i, 0)
}

func (s *Service) failed(r *Report, err error, table, key string) {
	s.log.WithError(err).WithField("table", table).WithField("key", key).Warn("seed row failed")
	r.Failed++
}

func (s *Service) seedBuilder(ctx context.Context, today time.Time, r *Report) {
	for _, m := range materials {
		prices := s.priceTrend(m.basePrice, builderMonths, m.volatility, false)
		start := prices[0]
		for i := 0; i < historyMonths; i++ {
			current := prices[len(prices)-1-i]
			trend, err := calc.BuilderCostTrend(current, start, historyMonths)
			if err != nil {
				s.failed(r, err, "builder_expenses", m.name)
				continue
			}
			if _, err := s.stores.Expenses.UpsertBuilderExpense(ctx, expense.BuilderExpense{
				Date:          monthsAgo(today, i),
				MaterialName:  m.name,
				CurrentPrice:  current,
				StartPrice:    start,
				PercentChange: trend.PercentChange,
				TotalChange:   calc.Round(current-start, 2),
				Status:        trend.Status,
			}); err != nil {
				s.failed(r, err, "builder_expenses", m.name)
				continue
			}
			r.Builder++
		}
	}
}

func (s *Service) seedHousehold(ctx context.Context, today time.Time, r *Report) {
	for _, item := range householdItems {
		prices := s.priceTrend(item.basePrice, householdMonths, householdVol, item.highVolatility)
		start := prices[0]
		for i := 0; i < historyMonths; i++ {
			current := prices[len(prices)-1-i]
			if _, err := s.stores.Expenses.UpsertHouseholdExpense(ctx, expense.HouseholdExpense{
				Date:          monthsAgo(today, i),
				Category:      item.category,
				ItemName:      item.name,
				CurrentPrice:  current,
				StartPrice:    start,
				PercentChange: calc.Round((current-start)/start*100, 1),
			}); err != nil {
				s.failed(r, err, "household_expenses", item.name)
				continue
			}
			r.Household++
		}
	}
}

// indicatorRisk scores the three indicators that have thresholds; the rest
// stay at five points and low risk.
func indicatorRisk(variable string, value float64) (int, string) {
	switch variable {
	case "Mortgage Rate Level":
		switch {
		case value > 7:
			return 15, calc.TierHigh
		case value > 6:
			return 10, calc.TierModerate
		}
	case "Price-to-Income Ratio":
		switch {
		case value > 5:
			return 12, calc.TierElevated
		case value > 4.5:
			return 8, calc.TierModerate
		}
	case "Affordability Index":
		switch {
		case value < 100:
			return 8, calc.TierElevated
		case value < 110:
			return 5, calc.TierModerate
		}
	}
	return 5, calc.TierLow
}

func (s *Service) seedCrash(ctx context.Context, today time.Time, r *Report) {
	for _, ind := range indicators {
		values := s.priceTrend(ind.baseValue, shortTrendMonths, ind.volatility/100, false)
		for i := 0; i < historyMonths; i++ {
			value := values[len(values)-1-i]
			points, tier := indicatorRisk(ind.variable, value)
			if _, err := s.stores.Crash.UpsertCrashIndicator(ctx, housing.CrashIndicator{
				Date:         monthsAgo(today, i),
				VariableName: ind.variable,
				Category:     ind.category,
				CurrentValue: calc.Round(value, 2),
				Points:       points,
				RiskTier:     tier,
			}); err != nil {
				s.failed(r, err, "crash_indicators", ind.variable)
				continue
			}
			r.Crash++
		}
	}
}

func (s *Service) seedRegional(ctx context.Context, today time.Time, r *Report) {
	for _, reg := range regions {
		prices := s.priceTrend(reg.basePrice, shortTrendMonths, regionalPriceVol, false)
		incomes := s.priceTrend(reg.baseIncome, shortTrendMonths, regionalIncVol, false)
		for i := 0; i < historyMonths; i++ {
			price := prices[len(prices)-1-i]
			income := incomes[len(incomes)-1-i]
			afford := calc.RegionalAffordability(price, income, seedMortgageRate)
			if _, err := s.stores.Regional.UpsertRegional(ctx, housing.RegionalAffordability{
				Date:                   monthsAgo(today, i),
				Region:                 reg.name,
				MedianHomePrice:        math.Round(price),
				MedianQualifyingIncome: afford.QualifyingIncome,
				MedianFamilyIncome:     math.Round(income),
				MedianMortgagePayment:  afford.MonthlyPayment,
				AffordabilityScore:     afford.AffordabilityScore,
			}); err != nil {
				s.failed(r, err, "regional_affordability", reg.name)
				continue
			}
			r.Regional++
		}
	}
}

func (s *Service) seedIndex(ctx context.Context, today time.Time, r *Report) {
	values := s.priceTrend(100, shortTrendMonths, indexVol, false)
	n := len(values)
	for i := 0; i < historyMonths; i++ {
		value := values[n-1-i]
		prev := values[n-2-i]
		yearAgo := values[n-13-i]

		idx := housing.EconomicIndex{
			Date:       monthsAgo(today, i),
			IndexValue: calc.Round(value, 1),
			MoMChange:  calc.Round(value-prev, 1),
			YoYChange:  calc.Round(value-yearAgo, 1),
		}
		if prev != 0 {
			idx.MoMPercent = calc.Round((value-prev)/prev*100, 1)
		}
		if yearAgo != 0 {
			idx.YoYPercent = calc.Round((value-yearAgo)/yearAgo*100, 1)
		}
		if _, err := s.stores.Index.UpsertEconomicIndex(ctx, idx); err != nil {
			s.failed(r, err, "economic_index", idx.Date.Format(housing.DateLayout))
			continue
		}
		r.Index++
	}
}
