package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{URL: srv.URL, ServiceKey: "service-key", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return New(client)
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{ServiceKey: "k"}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := NewClient(Config{URL: "https://example.supabase.co"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient(Config{URL: "https://user:pw@example.supabase.co", ServiceKey: "k"}); err == nil {
		t.Fatalf("expected error for user info")
	}
}

func TestUpsertMetricSendsConflictTarget(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/housing_metrics" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("on_conflict"); got != "date" {
			t.Errorf("on_conflict = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != preferMerge {
			t.Errorf("prefer = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("authorization = %q", got)
		}
		var rows []map[string]any
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 1 {
			t.Errorf("body = %s", body)
		} else if rows[0]["date"] != "2024-05-01" {
			t.Errorf("date = %v", rows[0]["date"])
		}
		w.Write([]byte(`[{"id":"row-1","date":"2024-05-01"}]`))
	})

	m, err := store.UpsertMetric(context.Background(), housing.Metric{
		Date:         time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
		MortgageRate: 6.9,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.ID != "row-1" {
		t.Fatalf("id = %q", m.ID)
	}
}

func TestLatestMetricDecodesRow(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("order") != "date.desc" || q.Get("limit") != "1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":"m1","date":"2024-06-01","median_home_value":412300,"mortgage_rate":6.87,"building_permits":1440}]`))
	})

	m, err := store.LatestMetric(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if m.MedianHomeValue != 412300 || m.MortgageRate != 6.87 || m.BuildingPermits != 1440 {
		t.Fatalf("unexpected metric %+v", m)
	}
	if m.Date.Format(housing.DateLayout) != "2024-06-01" {
		t.Fatalf("date = %s", m.Date)
	}
}

func TestLatestMetricNotFound(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	if _, err := store.LatestMetric(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRegionalFiltersDate(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("date") != "eq.2024-03-01" {
			t.Errorf("date filter = %q", q.Get("date"))
		}
		if q.Get("limit") != "" {
			t.Errorf("unexpected limit %q", q.Get("limit"))
		}
		w.Write([]byte(`[{"id":"1","date":"2024-03-01","region":"Midwest","affordability_score":131}]`))
	})

	rows, err := store.ListRegional(context.Background(), storage.ListOptions{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Region != "Midwest" || rows[0].AffordabilityScore != 131 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInsertMetroValuesCountsInsertedRows(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Prefer"); got != preferIgnore {
			t.Errorf("prefer = %q", got)
		}
		w.Write([]byte(`[{"id":"a"}]`))
	})

	n, err := store.InsertMetroValues(context.Background(), []metro.Value{
		{RegionID: 394913, RegionName: "New York, NY", RegionType: metro.RegionTypeMSA, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), HomeValue: 650000},
		{RegionID: 394913, RegionName: "New York, NY", RegionType: metro.RegionTypeMSA, Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), HomeValue: 652000},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}
}

func TestFindMetroRegionUsesIlike(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("region_name") != "ilike.*austin*" || q.Get("region_type") != "eq.msa" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"region_id":394355,"region_name":"Austin, TX","region_type":"msa","state_name":"TX","size_rank":26}]`))
	})

	region, err := store.FindMetroRegion(context.Background(), "austin", metro.RegionTypeMSA)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if region.RegionID != 394355 || region.SizeRank != 26 {
		t.Fatalf("unexpected region %+v", region)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api key"}`))
	})

	_, err := store.RecentMetrics(context.Background(), 5)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d", apiErr.Status)
	}
}

func TestGetScenarioDecodesAnalysis(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"s1","user_id":"u1","home_id":"h1","target_city":"Denver","scenario_type":"sell_and_buy",
			"analysis_results":{"recommendation":"SELL_NOW","confidence":"medium","reasoning":["ok"]},
			"created_at":"2024-05-01T10:00:00Z"}]`))
	})

	sc, err := store.GetScenario(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sc.AnalysisResults == nil || sc.AnalysisResults.Recommendation != "SELL_NOW" {
		t.Fatalf("analysis not decoded: %+v", sc.AnalysisResults)
	}
	if sc.CreatedAt.IsZero() {
		t.Fatalf("created_at not parsed")
	}
}

func TestDeleteHomeNotFound(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.Write([]byte(`[]`))
	})
	if err := store.DeleteHome(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
