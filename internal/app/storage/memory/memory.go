package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	metrics    map[string]housing.Metric
	regional   map[string]housing.RegionalAffordability
	builder    map[string]expense.BuilderExpense
	household  map[string]expense.HouseholdExpense
	crash      map[string]housing.CrashIndicator
	econIndex  map[string]housing.EconomicIndex
	metro      map[string]metro.Value
	homes      map[string]advisor.Home
	appraisals map[string][]advisor.Appraisal
	scenarios  map[string]advisor.Scenario
}

var _ storage.MetricStore = (*Store)(nil)
var _ storage.RegionalStore = (*Store)(nil)
var _ storage.ExpenseStore = (*Store)(nil)
var _ storage.CrashStore = (*Store)(nil)
var _ storage.EconomicIndexStore = (*Store)(nil)
var _ storage.MetroStore = (*Store)(nil)
var _ storage.HomeStore = (*Store)(nil)
var _ storage.ScenarioStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		metrics:    make(map[string]housing.Metric),
		regional:   make(map[string]housing.RegionalAffordability),
		builder:    make(map[string]expense.BuilderExpense),
		household:  make(map[string]expense.HouseholdExpense),
		crash:      make(map[string]housing.CrashIndicator),
		econIndex:  make(map[string]housing.EconomicIndex),
		metro:      make(map[string]metro.Value),
		homes:      make(map[string]advisor.Home),
		appraisals: make(map[string][]advisor.Appraisal),
		scenarios:  make(map[string]advisor.Scenario),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func dayKey(t time.Time) string {
	return housing.Day(t).Format(housing.DateLayout)
}

// selectDated orders rows newest first (ties by name) and applies opts.
func selectDated[T any](rows []T, date func(T) time.Time, name func(T) string, opts storage.ListOptions) []T {
	out := make([]T, 0, len(rows))
	want := ""
	if !opts.Date.IsZero() {
		want = dayKey(opts.Date)
	}
	for _, r := range rows {
		if want != "" && dayKey(date(r)) != want {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := date(out[i]), date(out[j])
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return name(out[i]) < name(out[j])
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// MetricStore implementation ---------------------------------------------------

func (s *Store) UpsertMetric(_ context.Context, m housing.Metric) (housing.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Date = housing.Day(m.Date)
	key := dayKey(m.Date)
	if existing, ok := s.metrics[key]; ok {
		m.ID = existing.ID
	} else {
		m.ID = s.nextIDLocked()
	}
	s.metrics[key] = m
	return m, nil
}

func (s *Store) LatestMetric(ctx context.Context) (housing.Metric, error) {
	rows, _ := s.RecentMetrics(ctx, 1)
	if len(rows) == 0 {
		return housing.Metric{}, fmt.Errorf("housing metric: %w", storage.ErrNotFound)
	}
	return rows[0], nil
}

func (s *Store) RecentMetrics(_ context.Context, limit int) ([]housing.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]housing.Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		rows = append(rows, m)
	}
	return selectDated(rows,
		func(m housing.Metric) time.Time { return m.Date },
		func(m housing.Metric) string { return m.ID },
		storage.ListOptions{Limit: limit}), nil
}

// RegionalStore implementation -------------------------------------------------

func (s *Store) UpsertRegional(_ context.Context, r housing.RegionalAffordability) (housing.RegionalAffordability, error) {
	if strings.TrimSpace(r.Region) == "" {
		return housing.RegionalAffordability{}, fmt.Errorf("region is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Date = housing.Day(r.Date)
	key := dayKey(r.Date) + "|" + r.Region
	if existing, ok := s.regional[key]; ok {
		r.ID = existing.ID
	} else {
		r.ID = s.nextIDLocked()
	}
	s.regional[key] = r
	return r, nil
}

func (s *Store) ListRegional(_ context.Context, opts storage.ListOptions) ([]housing.RegionalAffordability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]housing.RegionalAffordability, 0, len(s.regional))
	for _, r := range s.regional {
		rows = append(rows, r)
	}
	return selectDated(rows,
		func(r housing.RegionalAffordability) time.Time { return r.Date },
		func(r housing.RegionalAffordability) string { return r.Region },
		opts), nil
}

// ExpenseStore implementation --------------------------------------------------

func (s *Store) UpsertBuilderExpense(_ context.Context, e expense.BuilderExpense) (expense.BuilderExpense, error) {
	if strings.TrimSpace(e.MaterialName) == "" {
		return expense.BuilderExpense{}, fmt.Errorf("material_name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Date = housing.Day(e.Date)
	key := dayKey(e.Date) + "|" + e.MaterialName
	if existing, ok := s.builder[key]; ok {
		e.ID = existing.ID
	} else {
		e.ID = s.nextIDLocked()
	}
	s.builder[key] = e
	return e, nil
}

func (s *Store) ListBuilderExpenses(_ context.Context, opts storage.ListOptions) ([]expense.BuilderExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]expense.BuilderExpense, 0, len(s.builder))
	for _, e := range s.builder {
		rows = append(rows, e)
	}
	return selectDated(rows,
		func(e expense.BuilderExpense) time.Time { return e.Date },
		func(e expense.BuilderExpense) string { return e.MaterialName },
		opts), nil
}

func (s *Store) UpsertHouseholdExpense(_ context.Context, e expense.HouseholdExpense) (expense.HouseholdExpense, error) {
	if strings.TrimSpace(e.ItemName) == "" {
		return expense.HouseholdExpense{}, fmt.Errorf("item_name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Date = housing.Day(e.Date)
	key := dayKey(e.Date) + "|" + e.ItemName
	if existing, ok := s.household[key]; ok {
		e.ID = existing.ID
	} else {
		e.ID = s.nextIDLocked()
	}
	s.household[key] = e
	return e, nil
}

func (s *Store) ListHouseholdExpenses(_ context.Context, opts storage.ListOptions) ([]expense.HouseholdExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]expense.HouseholdExpense, 0, len(s.household))
	for _, e := range s.household {
		rows = append(rows, e)
	}
	return selectDated(rows,
		func(e expense.HouseholdExpense) time.Time { return e.Date },
		func(e expense.HouseholdExpense) string { return e.ItemName },
		opts), nil
}

// CrashStore implementation ----------------------------------------------------

func (s *Store) UpsertCrashIndicator(_ context.Context, c housing.CrashIndicator) (housing.CrashIndicator, error) {
	if strings.TrimSpace(c.VariableName) == "" {
		return housing.CrashIndicator{}, fmt.Errorf("variable_name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Date = housing.Day(c.Date)
	key := dayKey(c.Date) + "|" + c.VariableName
	if existing, ok := s.crash[key]; ok {
		c.ID = existing.ID
	} else {
		c.ID = s.nextIDLocked()
	}
	s.crash[key] = c
	return c, nil
}

func (s *Store) ListCrashIndicators(_ context.Context, opts storage.ListOptions) ([]housing.CrashIndicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]housing.CrashIndicator, 0, len(s.crash))
	for _, c := range s.crash {
		rows = append(rows, c)
	}
	return selectDated(rows,
		func(c housing.CrashIndicator) time.Time { return c.Date },
		func(c housing.CrashIndicator) string { return c.VariableName },
		opts), nil
}

// EconomicIndexStore implementation -------------------------------------------

func (s *Store) UpsertEconomicIndex(_ context.Context, idx housing.EconomicIndex) (housing.EconomicIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx.Date = housing.Day(idx.Date)
	key := dayKey(idx.Date)
	if existing, ok := s.econIndex[key]; ok {
		idx.ID = existing.ID
	} else {
		idx.ID = s.nextIDLocked()
	}
	s.econIndex[key] = idx
	return idx, nil
}

func (s *Store) GetEconomicIndex(_ context.Context, date time.Time) (housing.EconomicIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.econIndex[dayKey(date)]
	if !ok {
		return housing.EconomicIndex{}, fmt.Errorf("economic index %s: %w", dayKey(date), storage.ErrNotFound)
	}
	return idx, nil
}

func (s *Store) LatestEconomicIndex(ctx context.Context) (housing.EconomicIndex, error) {
	rows, _ := s.RecentEconomicIndex(ctx, 1)
	if len(rows) == 0 {
		return housing.EconomicIndex{}, fmt.Errorf("economic index: %w", storage.ErrNotFound)
	}
	return rows[0], nil
}

func (s *Store) RecentEconomicIndex(_ context.Context, limit int) ([]housing.EconomicIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]housing.EconomicIndex, 0, len(s.econIndex))
	for _, idx := range s.econIndex {
		rows = append(rows, idx)
	}
	return selectDated(rows,
		func(idx housing.EconomicIndex) time.Time { return idx.Date },
		func(idx housing.EconomicIndex) string { return idx.ID },
		storage.ListOptions{Limit: limit}), nil
}

// MetroStore implementation ----------------------------------------------------

func metroKey(regionID int, date time.Time) string {
	return fmt.Sprintf("%d|%s", regionID, dayKey(date))
}

func (s *Store) InsertMetroValues(_ context.Context, values []metro.Value) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, v := range values {
		v.Date = housing.Day(v.Date)
		key := metroKey(v.RegionID, v.Date)
		if _, exists := s.metro[key]; exists {
			continue
		}
		v.ID = s.nextIDLocked()
		s.metro[key] = v
		inserted++
	}
	return inserted, nil
}

func (s *Store) LatestMetroValue(ctx context.Context, regionID int) (metro.Value, error) {
	return s.MetroValueAtOrBefore(ctx, regionID, time.Time{})
}

// MetroValueAtOrBefore returns the newest value on or before date; a zero
// date means no upper bound.
func (s *Store) MetroValueAtOrBefore(_ context.Context, regionID int, date time.Time) (metro.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  metro.Value
		found bool
	)
	bound := housing.Day(date)
	for _, v := range s.metro {
		if v.RegionID != regionID {
			continue
		}
		if !date.IsZero() && v.Date.After(bound) {
			continue
		}
		if !found || v.Date.After(best.Date) {
			best = v
			found = true
		}
	}
	if !found {
		return metro.Value{}, fmt.Errorf("metro value for region %d: %w", regionID, storage.ErrNotFound)
	}
	return best, nil
}

func (s *Store) GetMetroRegion(_ context.Context, regionID int) (metro.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.metro {
		if v.RegionID == regionID {
			return regionOf(v), nil
		}
	}
	return metro.Region{}, fmt.Errorf("metro region %d: %w", regionID, storage.ErrNotFound)
}

func (s *Store) FindMetroRegion(ctx context.Context, query, regionType string) (metro.Region, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return metro.Region{}, fmt.Errorf("metro query is required")
	}
	regions, _ := s.ListMetroRegions(ctx, regionType, 0)
	for _, r := range regions {
		if strings.Contains(strings.ToLower(r.RegionName), query) {
			return r, nil
		}
	}
	return metro.Region{}, fmt.Errorf("metro matching %q: %w", query, storage.ErrNotFound)
}

// ListMetroRegions returns distinct regions ordered by size rank.
func (s *Store) ListMetroRegions(_ context.Context, regionType string, limit int) ([]metro.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]metro.Region)
	for _, v := range s.metro {
		if regionType != "" && !strings.EqualFold(v.RegionType, regionType) {
			continue
		}
		if _, ok := seen[v.RegionID]; !ok {
			seen[v.RegionID] = regionOf(v)
		}
	}
	out := make([]metro.Region, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SizeRank != out[j].SizeRank {
			return out[i].SizeRank < out[j].SizeRank
		}
		return out[i].RegionID < out[j].RegionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func regionOf(v metro.Value) metro.Region {
	return metro.Region{
		RegionID:   v.RegionID,
		RegionName: v.RegionName,
		RegionType: v.RegionType,
		StateName:  v.StateName,
		SizeRank:   v.SizeRank,
	}
}

// HomeStore implementation -----------------------------------------------------

func (s *Store) CreateHome(_ context.Context, h advisor.Home) (advisor.Home, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = s.nextIDLocked()
	} else if _, exists := s.homes[h.ID]; exists {
		return advisor.Home{}, fmt.Errorf("home %s already exists", h.ID)
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	s.homes[h.ID] = cloneHome(h)
	return cloneHome(h), nil
}

func (s *Store) UpdateHome(_ context.Context, h advisor.Home) (advisor.Home, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.homes[h.ID]
	if !ok {
		return advisor.Home{}, fmt.Errorf("home %s: %w", h.ID, storage.ErrNotFound)
	}
	h.UserID = existing.UserID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()
	s.homes[h.ID] = cloneHome(h)
	return cloneHome(h), nil
}

func (s *Store) GetHome(_ context.Context, id string) (advisor.Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.homes[id]
	if !ok {
		return advisor.Home{}, fmt.Errorf("home %s: %w", id, storage.ErrNotFound)
	}
	return cloneHome(h), nil
}

func (s *Store) ListHomes(_ context.Context, userID string) ([]advisor.Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]advisor.Home, 0)
	for _, h := range s.homes {
		if userID == "" || h.UserID == userID {
			out = append(out, cloneHome(h))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteHome(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.homes[id]; !ok {
		return fmt.Errorf("home %s: %w", id, storage.ErrNotFound)
	}
	delete(s.homes, id)
	delete(s.appraisals, id)
	return nil
}

func (s *Store) CreateAppraisal(_ context.Context, a advisor.Appraisal) (advisor.Appraisal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.homes[a.HomeID]; !ok {
		return advisor.Appraisal{}, fmt.Errorf("home %s: %w", a.HomeID, storage.ErrNotFound)
	}
	a.ID = s.nextIDLocked()
	a.AppraisalDate = housing.Day(a.AppraisalDate)
	a.CreatedAt = time.Now().UTC()
	s.appraisals[a.HomeID] = append(s.appraisals[a.HomeID], a)
	return a, nil
}

func (s *Store) ListAppraisals(_ context.Context, homeID string) ([]advisor.Appraisal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.appraisals[homeID]
	out := make([]advisor.Appraisal, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppraisalDate.After(out[j].AppraisalDate) })
	return out, nil
}

// ScenarioStore implementation -------------------------------------------------

func (s *Store) CreateScenario(_ context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == "" {
		sc.ID = s.nextIDLocked()
	} else if _, exists := s.scenarios[sc.ID]; exists {
		return advisor.Scenario{}, fmt.Errorf("scenario %s already exists", sc.ID)
	}
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	s.scenarios[sc.ID] = sc
	return sc, nil
}

func (s *Store) UpdateScenario(_ context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.scenarios[sc.ID]
	if !ok {
		return advisor.Scenario{}, fmt.Errorf("scenario %s: %w", sc.ID, storage.ErrNotFound)
	}
	sc.UserID = existing.UserID
	sc.CreatedAt = existing.CreatedAt
	sc.UpdatedAt = time.Now().UTC()
	s.scenarios[sc.ID] = sc
	return sc, nil
}

func (s *Store) GetScenario(_ context.Context, id string) (advisor.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return advisor.Scenario{}, fmt.Errorf("scenario %s: %w", id, storage.ErrNotFound)
	}
	return sc, nil
}

func (s *Store) ListScenarios(_ context.Context, userID string) ([]advisor.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]advisor.Scenario, 0)
	for _, sc := range s.scenarios {
		if userID == "" || sc.UserID == userID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteScenario(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[id]; !ok {
		return fmt.Errorf("scenario %s: %w", id, storage.ErrNotFound)
	}
	delete(s.scenarios, id)
	return nil
}

func cloneHome(h advisor.Home) advisor.Home {
	if h.RegionID != nil {
		v := *h.RegionID
		h.RegionID = &v
	}
	if h.PurchaseDate != nil {
		v := *h.PurchaseDate
		h.PurchaseDate = &v
	}
	return h
}
