// Package fred reads observation series from the Federal Reserve Economic
// Data API.
package fred

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/metrics"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// DefaultBaseURL is the public FRED API root.
const DefaultBaseURL = "https://api.stlouisfed.org/fred"

const (
	maxBodyBytes   = 8 << 20
	fetchManyLimit = 4
)

// ErrMissingAPIKey is returned when no FRED API key is configured.
var ErrMissingAPIKey = errors.New("FRED_API_KEY is not configured")

// Observation is a single dated value. FRED's missing-value marker "." is
// dropped before observations reach callers.
type Observation struct {
	Date  time.Time
	Value float64
}

// Query narrows an observations request. Zero fields are omitted.
type Query struct {
	Start time.Time
	End   time.Time
	Limit int
	Desc  bool
}

// Source is the subset of the client used by the sync jobs.
type Source interface {
	Observations(ctx context.Context, seriesID string, q Query) ([]Observation, error)
	FetchMany(ctx context.Context, seriesIDs []string, q Query) map[string][]Observation
}

// Client calls the FRED observations endpoint.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	apiKey  string
	limiter *rate.Limiter
	log     *logger.Logger
}

var _ Source = (*Client)(nil)

// NewHTTPClient constructs a client. requestsPerMinute <= 0 disables
// throttling.
func NewHTTPClient(client *http.Client, baseURL, apiKey string, requestsPerMinute int, log *logger.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse fred base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("fred-client")
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &Client{
		client:  client,
		baseURL: parsed,
		apiKey:  apiKey,
		limiter: limiter,
		log:     log,
	}, nil
}

// Observations returns the parsed observations of seriesID.
func (c *Client) Observations(ctx context.Context, seriesID string, q Query) ([]Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/series/observations"
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	if q.Desc {
		params.Set("sort_order", "desc")
	} else {
		params.Set("sort_order", "asc")
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.Start.IsZero() {
		params.Set("observation_start", q.Start.Format(housing.DateLayout))
	}
	if !q.End.IsZero() {
		params.Set("observation_end", q.End.Format(housing.DateLayout))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fred request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordFREDRequest(seriesID, 0)
		return nil, fmt.Errorf("fred: series %s: %w", seriesID, err)
	}
	defer resp.Body.Close()
	metrics.RecordFREDRequest(seriesID, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fred: series %s: status %d", seriesID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fred: series %s: read body: %w", seriesID, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fred: series %s: invalid json", seriesID)
	}
	return parseObservations(body), nil
}

// parseObservations accepts both the flat "observations" payload and the
// "series.observations" wrapper some FRED mirrors return.
func parseObservations(body []byte) []Observation {
	raw := gjson.GetBytes(body, "observations")
	if !raw.Exists() {
		raw = gjson.GetBytes(body, "series.observations")
	}
	out := make([]Observation, 0, len(raw.Array()))
	raw.ForEach(func(_, obs gjson.Result) bool {
		value := strings.TrimSpace(obs.Get("value").String())
		if value == "" || value == "." {
			return true
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return true
		}
		date, err := housing.ParseDay(obs.Get("date").String())
		if err != nil {
			return true
		}
		out = append(out, Observation{Date: date, Value: v})
		return true
	})
	return out
}

// FetchMany fetches several series concurrently. A series that fails maps to
// an empty slice and is logged; the call itself never fails.
func (c *Client) FetchMany(ctx context.Context, seriesIDs []string, q Query) map[string][]Observation {
	var mu sync.Mutex
	out := make(map[string][]Observation, len(seriesIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchManyLimit)
	for _, id := range seriesIDs {
		id := id
		g.Go(func() error {
			obs, err := c.Observations(gctx, id, q)
			if err != nil {
				c.log.WithError(err).WithField("series", id).Warn("fred series fetch failed")
				obs = []Observation{}
			}
			mu.Lock()
			out[id] = obs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Latest returns the newest observation of a descending slice, or false.
func Latest(obs []Observation) (Observation, bool) {
	if len(obs) == 0 {
		return Observation{}, false
	}
	return obs[0], true
}
