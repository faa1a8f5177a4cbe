package fred

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewHTTPClient(server.Client(), server.URL, "key", 0, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewHTTPClientRequiresKey(t *testing.T) {
	if _, err := NewHTTPClient(nil, "", "  ", 0, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestObservationsBuildsQueryAndDropsMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/observations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"series_id":         "MORTGAGE30US",
			"api_key":           "key",
			"file_type":         "json",
			"sort_order":        "desc",
			"limit":             "3",
			"observation_start": "2023-01-01",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("param %s = %q, want %q", k, q.Get(k), v)
			}
		}
		if q.Has("observation_end") {
			t.Errorf("observation_end should be omitted")
		}
		w.Write([]byte(`{"observations":[
			{"date":"2024-05-02","value":"7.22"},
			{"date":"2024-04-25","value":"."},
			{"date":"2024-04-18","value":"7.10"}]}`))
	})

	obs, err := client.Observations(context.Background(), "MORTGAGE30US", Query{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Limit: 3,
		Desc:  true,
	})
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].Value != 7.22 || obs[0].Date.Format("2006-01-02") != "2024-05-02" {
		t.Fatalf("unexpected first observation %+v", obs[0])
	}
	latest, ok := Latest(obs)
	if !ok || latest.Value != 7.22 {
		t.Fatalf("unexpected latest %+v", latest)
	}
}

func TestObservationsAcceptsSeriesWrapper(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"series":{"observations":[{"date":"2024-01-01","value":"412300"}]}}`))
	})
	obs, err := client.Observations(context.Background(), "MSPUS", Query{})
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	if len(obs) != 1 || obs[0].Value != 412300 {
		t.Fatalf("unexpected observations %+v", obs)
	}
}

func TestObservationsStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := client.Observations(context.Background(), "BAD", Query{})
	if err == nil || err.Error() != "fred: series BAD: status 400" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFetchManyFailsSoft(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("series_id") == "BROKEN" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"observations":[{"date":"2024-01-01","value":"1.5"}]}`))
	})

	got := client.FetchMany(context.Background(), []string{"A", "BROKEN", "B"}, Query{Limit: 1, Desc: true})
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(got["A"]) != 1 || len(got["B"]) != 1 {
		t.Fatalf("expected healthy series, got %+v", got)
	}
	broken, ok := got["BROKEN"]
	if !ok || len(broken) != 0 {
		t.Fatalf("expected empty slice for failed series, got %+v (present=%v)", broken, ok)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations":[]}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.Client(), server.URL, "key", 1, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Observations(context.Background(), "A", Query{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Observations(ctx, "A", Query{}); err == nil {
		t.Fatalf("expected limiter wait to fail once the context expires")
	}
}
