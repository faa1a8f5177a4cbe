package storage

import (
	"context"
	"errors"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ListOptions selects dated rows. A non-zero Date restricts results to that
// day; otherwise the newest rows are returned. Limit <= 0 means no limit.
type ListOptions struct {
	Date  time.Time
	Limit int
}

// MetricStore persists national housing metrics keyed by date.
type MetricStore interface {
	UpsertMetric(ctx context.Context, m housing.Metric) (housing.Metric, error)
	LatestMetric(ctx context.Context) (housing.Metric, error)
	// RecentMetrics returns up to limit rows, newest first.
	RecentMetrics(ctx context.Context, limit int) ([]housing.Metric, error)
}

// RegionalStore persists regional affordability keyed by (date, region).
type RegionalStore interface {
	UpsertRegional(ctx context.Context, r housing.RegionalAffordability) (housing.RegionalAffordability, error)
	ListRegional(ctx context.Context, opts ListOptions) ([]housing.RegionalAffordability, error)
}

// ExpenseStore persists builder and household expense rows.
type ExpenseStore interface {
	UpsertBuilderExpense(ctx context.Context, e expense.BuilderExpense) (expense.BuilderExpense, error)
	ListBuilderExpenses(ctx context.Context, opts ListOptions) ([]expense.BuilderExpense, error)

	UpsertHouseholdExpense(ctx context.Context, e expense.HouseholdExpense) (expense.HouseholdExpense, error)
	ListHouseholdExpenses(ctx context.Context, opts ListOptions) ([]expense.HouseholdExpense, error)
}

// CrashStore persists crash indicators keyed by (date, variable_name).
type CrashStore interface {
	UpsertCrashIndicator(ctx context.Context, c housing.CrashIndicator) (housing.CrashIndicator, error)
	ListCrashIndicators(ctx context.Context, opts ListOptions) ([]housing.CrashIndicator, error)
}

// EconomicIndexStore persists the composite index keyed by date.
type EconomicIndexStore interface {
	UpsertEconomicIndex(ctx context.Context, idx housing.EconomicIndex) (housing.EconomicIndex, error)
	GetEconomicIndex(ctx context.Context, date time.Time) (housing.EconomicIndex, error)
	LatestEconomicIndex(ctx context.Context) (housing.EconomicIndex, error)
	// RecentEconomicIndex returns up to limit rows, newest first.
	RecentEconomicIndex(ctx context.Context, limit int) ([]housing.EconomicIndex, error)
}

// MetroStore persists ZHVI observations keyed by (region_id, date).
type MetroStore interface {
	// InsertMetroValues stores values, silently skipping existing keys, and
	// reports how many rows were new.
	InsertMetroValues(ctx context.Context, values []metro.Value) (int, error)
	LatestMetroValue(ctx context.Context, regionID int) (metro.Value, error)
	MetroValueAtOrBefore(ctx context.Context, regionID int, date time.Time) (metro.Value, error)
	GetMetroRegion(ctx context.Context, regionID int) (metro.Region, error)
	// FindMetroRegion matches query case-insensitively against region names
	// of the given type.
	FindMetroRegion(ctx context.Context, query, regionType string) (metro.Region, error)
	ListMetroRegions(ctx context.Context, regionType string, limit int) ([]metro.Region, error)
}

// HomeStore persists user homes and their appraisals.
type HomeStore interface {
	CreateHome(ctx context.Context, h advisor.Home) (advisor.Home, error)
	UpdateHome(ctx context.Context, h advisor.Home) (advisor.Home, error)
	GetHome(ctx context.Context, id string) (advisor.Home, error)
	ListHomes(ctx context.Context, userID string) ([]advisor.Home, error)
	DeleteHome(ctx context.Context, id string) error

	CreateAppraisal(ctx context.Context, a advisor.Appraisal) (advisor.Appraisal, error)
	// ListAppraisals returns appraisals for a home, newest appraisal first.
	ListAppraisals(ctx context.Context, homeID string) ([]advisor.Appraisal, error)
}

// ScenarioStore persists saved relocation scenarios.
type ScenarioStore interface {
	CreateScenario(ctx context.Context, s advisor.Scenario) (advisor.Scenario, error)
	UpdateScenario(ctx context.Context, s advisor.Scenario) (advisor.Scenario, error)
	GetScenario(ctx context.Context, id string) (advisor.Scenario, error)
	ListScenarios(ctx context.Context, userID string) ([]advisor.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error
}
