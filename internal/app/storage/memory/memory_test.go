package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

func day(s string) time.Time {
	t, err := time.Parse(housing.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUpsertMetricIsIdempotentPerDate(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.UpsertMetric(ctx, housing.Metric{Date: day("2024-05-01"), MortgageRate: 7.1})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := store.UpsertMetric(ctx, housing.Metric{Date: day("2024-05-01").Add(15 * time.Hour), MortgageRate: 6.9})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same id, got %s and %s", first.ID, second.ID)
	}

	rows, _ := store.RecentMetrics(ctx, 10)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].MortgageRate != 6.9 {
		t.Fatalf("expected updated rate, got %v", rows[0].MortgageRate)
	}
}

func TestLatestMetricNotFound(t *testing.T) {
	_, err := New().LatestMetric(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOptionsDateAndLimit(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, d := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
		for _, m := range []string{"Cement", "Lumber & Wood Products"} {
			if _, err := store.UpsertBuilderExpense(ctx, expense.BuilderExpense{Date: day(d), MaterialName: m}); err != nil {
				t.Fatalf("upsert: %v", err)
			}
		}
	}

	onDate, _ := store.ListBuilderExpenses(ctx, storage.ListOptions{Date: day("2024-02-01")})
	if len(onDate) != 2 {
		t.Fatalf("expected 2 rows for date, got %d", len(onDate))
	}

	latest, _ := store.ListBuilderExpenses(ctx, storage.ListOptions{Limit: 3})
	if len(latest) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(latest))
	}
	if !latest[0].Date.Equal(day("2024-03-01")) || latest[0].MaterialName != "Cement" {
		t.Fatalf("unexpected first row %+v", latest[0])
	}
	if !latest[2].Date.Equal(day("2024-02-01")) {
		t.Fatalf("expected third row from february, got %s", latest[2].Date)
	}
}

func TestUpsertRequiresKey(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.UpsertRegional(ctx, housing.RegionalAffordability{Date: day("2024-01-01")}); err == nil {
		t.Fatalf("expected error for empty region")
	}
	if _, err := store.UpsertHouseholdExpense(ctx, expense.HouseholdExpense{Date: day("2024-01-01")}); err == nil {
		t.Fatalf("expected error for empty item")
	}
	if _, err := store.UpsertCrashIndicator(ctx, housing.CrashIndicator{Date: day("2024-01-01")}); err == nil {
		t.Fatalf("expected error for empty variable")
	}
}

func TestMetroValues(t *testing.T) {
	store := New()
	ctx := context.Background()
	values := []metro.Value{
		{RegionID: 394913, SizeRank: 1, RegionName: "New York, NY", RegionType: "msa", Date: day("2023-06-30"), HomeValue: 600000},
		{RegionID: 394913, SizeRank: 1, RegionName: "New York, NY", RegionType: "msa", Date: day("2024-06-30"), HomeValue: 640000},
		{RegionID: 753899, SizeRank: 2, RegionName: "Los Angeles, CA", RegionType: "msa", Date: day("2024-06-30"), HomeValue: 920000},
	}
	n, err := store.InsertMetroValues(ctx, values)
	if err != nil || n != 3 {
		t.Fatalf("insert: n=%d err=%v", n, err)
	}
	n, _ = store.InsertMetroValues(ctx, values[:1])
	if n != 0 {
		t.Fatalf("expected duplicate to be ignored, inserted %d", n)
	}

	latest, err := store.LatestMetroValue(ctx, 394913)
	if err != nil || latest.HomeValue != 640000 {
		t.Fatalf("latest: %+v %v", latest, err)
	}
	prior, err := store.MetroValueAtOrBefore(ctx, 394913, day("2024-01-01"))
	if err != nil || prior.HomeValue != 600000 {
		t.Fatalf("at or before: %+v %v", prior, err)
	}
	if _, err := store.MetroValueAtOrBefore(ctx, 394913, day("2020-01-01")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	region, err := store.FindMetroRegion(ctx, "angeles", metro.RegionTypeMSA)
	if err != nil || region.RegionID != 753899 {
		t.Fatalf("find: %+v %v", region, err)
	}
	regions, _ := store.ListMetroRegions(ctx, "msa", 0)
	if len(regions) != 2 || regions[0].RegionID != 394913 {
		t.Fatalf("unexpected regions %+v", regions)
	}
}

func TestHomesAndAppraisals(t *testing.T) {
	store := New()
	ctx := context.Background()

	home, err := store.CreateHome(ctx, advisor.Home{UserID: "u1", City: "Austin", State: "TX", PurchasePrice: 400000})
	if err != nil {
		t.Fatalf("create home: %v", err)
	}
	if _, err := store.CreateAppraisal(ctx, advisor.Appraisal{HomeID: home.ID, AppraisalDate: day("2023-01-01"), AppraisedValue: 420000}); err != nil {
		t.Fatalf("appraisal: %v", err)
	}
	if _, err := store.CreateAppraisal(ctx, advisor.Appraisal{HomeID: home.ID, AppraisalDate: day("2024-01-01"), AppraisedValue: 450000}); err != nil {
		t.Fatalf("appraisal: %v", err)
	}
	if _, err := store.CreateAppraisal(ctx, advisor.Appraisal{HomeID: "missing", AppraisedValue: 1}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for missing home, got %v", err)
	}

	list, _ := store.ListAppraisals(ctx, home.ID)
	if len(list) != 2 || list[0].AppraisedValue != 450000 {
		t.Fatalf("expected newest appraisal first, got %+v", list)
	}

	homes, _ := store.ListHomes(ctx, "u2")
	if len(homes) != 0 {
		t.Fatalf("expected no homes for other user")
	}

	if err := store.DeleteHome(ctx, home.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetHome(ctx, home.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestScenarios(t *testing.T) {
	store := New()
	ctx := context.Background()

	sc, err := store.CreateScenario(ctx, advisor.Scenario{UserID: "u1", Name: "move", TargetCity: "Denver", ScenarioType: advisor.SellAndBuy})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sc.Name = "renamed"
	sc.UserID = "intruder"
	updated, err := store.UpdateScenario(ctx, sc)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UserID != "u1" || updated.Name != "renamed" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	list, _ := store.ListScenarios(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expected one scenario, got %d", len(list))
	}
	if err := store.DeleteScenario(ctx, sc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
