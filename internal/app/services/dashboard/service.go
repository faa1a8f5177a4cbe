// Package dashboard serves the read side of the housing dashboard from the
// stores through a TTL cache.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/cache"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/calc"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

const (
	keyPrefix = "dashboard:"

	DefaultTTL          = 5 * time.Minute
	DefaultHistoryLimit = 24
	MaxHistoryLimit     = 240
	latestRegional      = 4
	latestBuilder       = 10
	latestHousehold     = 30
	latestCrash         = 20
)

// Stores groups the tables read by the dashboard.
type Stores struct {
	Metrics  storage.MetricStore
	Regional storage.RegionalStore
	Expenses storage.ExpenseStore
	Crash    storage.CrashStore
	Index    storage.EconomicIndexStore
}

// Service answers dashboard queries.
type Service struct {
	stores Stores
	cache  cache.Cache
	ttl    time.Duration
	log    *logger.Logger
}

// New constructs the dashboard service. A nil cache disables caching and a
// non-positive ttl uses DefaultTTL.
func New(stores Stores, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	return &Service{stores: stores, cache: c, ttl: ttl, log: log}
}

// Invalidate drops every cached dashboard response.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, keyPrefix); err != nil {
		return fmt.Errorf("invalidate dashboard cache: %w", err)
	}
	s.log.Debug("dashboard cache invalidated")
	return nil
}

func dateKey(date time.Time) string {
	if date.IsZero() {
		return "latest"
	}
	return housing.Day(date).Format(housing.DateLayout)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return min(limit, MaxHistoryLimit)
}

// LatestMetric returns the newest housing metric row.
func (s *Service) LatestMetric(ctx context.Context) (housing.Metric, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"metric:latest", s.ttl, s.stores.Metrics.LatestMetric)
}

// MetricHistory returns the newest limit metric rows, oldest first.
func (s *Service) MetricHistory(ctx context.Context, limit int) ([]housing.Metric, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("%smetric:history:%d", keyPrefix, limit)
	return cache.GetOrLoad(ctx, s.cache, s.log, key, s.ttl, func(ctx context.Context) ([]housing.Metric, error) {
		rows, err := s.stores.Metrics.RecentMetrics(ctx, limit)
		if err != nil {
			return nil, err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
		return rows, nil
	})
}

// Regional returns the rows for date, or the latest four when date is zero.
func (s *Service) Regional(ctx context.Context, date time.Time) ([]housing.RegionalAffordability, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"regional:"+dateKey(date), s.ttl, func(ctx context.Context) ([]housing.RegionalAffordability, error) {
		return s.stores.Regional.ListRegional(ctx, listOptions(date, latestRegional))
	})
}

// BuilderExpenses returns the rows for date, or the latest ten.
func (s *Service) BuilderExpenses(ctx context.Context, date time.Time) ([]expense.BuilderExpense, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"builder:"+dateKey(date), s.ttl, func(ctx context.Context) ([]expense.BuilderExpense, error) {
		return s.stores.Expenses.ListBuilderExpenses(ctx, listOptions(date, latestBuilder))
	})
}

// HouseholdExpenses returns the rows for date, or the latest thirty.
func (s *Service) HouseholdExpenses(ctx context.Context, date time.Time) ([]expense.HouseholdExpense, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"household:"+dateKey(date), s.ttl, func(ctx context.Context) ([]expense.HouseholdExpense, error) {
		return s.stores.Expenses.ListHouseholdExpenses(ctx, listOptions(date, latestHousehold))
	})
}

// CrashIndicators returns the rows for date, or the latest twenty.
func (s *Service) CrashIndicators(ctx context.Context, date time.Time) ([]housing.CrashIndicator, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"crash:"+dateKey(date), s.ttl, func(ctx context.Context) ([]housing.CrashIndicator, error) {
		return s.stores.Crash.ListCrashIndicators(ctx, listOptions(date, latestCrash))
	})
}

// EconomicIndex returns the newest limit index rows, oldest first.
func (s *Service) EconomicIndex(ctx context.Context, limit int) ([]housing.EconomicIndex, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("%sindex:%d", keyPrefix, limit)
	return cache.GetOrLoad(ctx, s.cache, s.log, key, s.ttl, func(ctx context.Context) ([]housing.EconomicIndex, error) {
		rows, err := s.stores.Index.RecentEconomicIndex(ctx, limit)
		if err != nil {
			return nil, err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
		return rows, nil
	})
}

// listOptions filters by date when set; otherwise it takes the newest limit
// rows.
func listOptions(date time.Time, limit int) storage.ListOptions {
	if date.IsZero() {
		return storage.ListOptions{Limit: limit}
	}
	return storage.ListOptions{Date: housing.Day(date)}
}

// Summary combines the derived indicators for the latest metric.
type Summary struct {
	Date            time.Time      `json:"date"`
	Metric          housing.Metric `json:"metric"`
	Health          calc.Health    `json:"healthIndex"`
	CrashRisk       calc.Risk      `json:"crashRisk"`
	Momentum        calc.Momentum  `json:"momentum"`
	PriceToIncome   *calc.Ratio    `json:"priceToIncome,omitempty"`
	PaymentToIncome *calc.Ratio    `json:"paymentToIncome,omitempty"`
	MonthlyPayment  float64        `json:"monthlyPayment"`
	ExpenseImpact   *calc.Impact   `json:"expenseImpact,omitempty"`
}

// Summary derives health, crash risk, momentum and affordability ratios from
// the latest two metric rows. It returns storage.ErrNotFound when no metric
// exists.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return cache.GetOrLoad(ctx, s.cache, s.log, keyPrefix+"summary", s.ttl, s.buildSummary)
}

func (s *Service) buildSummary(ctx context.Context) (Summary, error) {
	rows, err := s.stores.Metrics.RecentMetrics(ctx, 2)
	if err != nil {
		return Summary{}, fmt.Errorf("recent metrics: %w", err)
	}
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("housing metric: %w", storage.ErrNotFound)
	}
	current := rows[0]
	var previous *housing.Metric
	if len(rows) > 1 {
		previous = &rows[1]
	}

	indicators, err := s.stores.Crash.ListCrashIndicators(ctx, storage.ListOptions{Limit: latestCrash})
	if err != nil {
		return Summary{}, fmt.Errorf("crash indicators: %w", err)
	}

	out := Summary{
		Date:      current.Date,
		Metric:    current,
		Health:    calc.HousingHealthIndex(current),
		CrashRisk: calc.CrashRisk(newestDate(indicators), current),
		Momentum:  calc.MarketMomentum(current, previous),
	}

	if r, err := calc.PriceToIncome(current.MedianHomeValue, current.MedianHouseholdIncome); err == nil {
		out.PriceToIncome = &r
	}
	out.MonthlyPayment = calc.Round(calc.MonthlyPayment(current.MedianHomeValue*0.8, current.MortgageRate, 30), 0)
	if r, err := calc.PaymentToIncome(out.MonthlyPayment, current.MedianHouseholdIncome/12); err == nil {
		out.PaymentToIncome = &r
	}

	household, err := s.stores.Expenses.ListHouseholdExpenses(ctx, storage.ListOptions{Limit: latestHousehold})
	if err != nil {
		s.log.WithError(err).Warn("household expenses unavailable for summary")
	} else if len(household) > 0 {
		day := household[0].Date
		var latest []expense.HouseholdExpense
		for _, h := range household {
			if h.Date.Equal(day) {
				latest = append(latest, h)
			}
		}
		if impact, err := calc.HouseholdExpenseImpact(latest, current.MedianHouseholdIncome); err == nil {
			out.ExpenseImpact = &impact
		} else if !errors.Is(err, calc.ErrZeroIncome) {
			s.log.WithError(err).Warn("expense impact failed")
		}
	}
	return out, nil
}

// newestDate keeps the indicators sharing the first row's date. Rows arrive
// newest first.
func newestDate(rows []housing.CrashIndicator) []housing.CrashIndicator {
	if len(rows) == 0 {
		return rows
	}
	day := rows[0].Date
	out := make([]housing.CrashIndicator, 0, len(rows))
	for _, r := range rows {
		if r.Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out
}
