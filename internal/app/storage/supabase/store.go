package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

// Store implements the storage interfaces over PostgREST. Unique keys are
// enforced by the database and upserts use on_conflict with
// merge-duplicates.
type Store struct {
	client *Client
}

var _ storage.MetricStore = (*Store)(nil)
var _ storage.RegionalStore = (*Store)(nil)
var _ storage.ExpenseStore = (*Store)(nil)
var _ storage.CrashStore = (*Store)(nil)
var _ storage.EconomicIndexStore = (*Store)(nil)
var _ storage.MetroStore = (*Store)(nil)
var _ storage.HomeStore = (*Store)(nil)
var _ storage.ScenarioStore = (*Store)(nil)

// New returns a store backed by client.
func New(client *Client) *Store {
	return &Store{client: client}
}

func dayString(t time.Time) string {
	return housing.Day(t).Format(housing.DateLayout)
}

func parseDay(r gjson.Result) time.Time {
	t, _ := housing.ParseDay(r.String())
	return t
}

func parseTimestamp(r gjson.Result) time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.String())
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// upsertRow posts a single row and returns the stored representation.
func (s *Store) upsertRow(ctx context.Context, table, conflict string, row map[string]any) (gjson.Result, error) {
	q := neturl.Values{}
	q.Set("on_conflict", conflict)
	body, err := s.client.request(ctx, http.MethodPost, table, q, []map[string]any{row}, preferMerge)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("upsert %s: %w", table, err)
	}
	return gjson.GetBytes(body, "0"), nil
}

// selectRows runs a GET with the given filters.
func (s *Store) selectRows(ctx context.Context, table string, q neturl.Values) ([]gjson.Result, error) {
	if q.Get("select") == "" {
		q.Set("select", "*")
	}
	body, err := s.client.request(ctx, http.MethodGet, table, q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return gjson.ParseBytes(body).Array(), nil
}

func (s *Store) selectOne(ctx context.Context, table string, q neturl.Values, what string) (gjson.Result, error) {
	q.Set("limit", "1")
	rows, err := s.selectRows(ctx, table, q)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(rows) == 0 {
		return gjson.Result{}, fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return rows[0], nil
}

func datedQuery(opts storage.ListOptions, tiebreak string) neturl.Values {
	q := neturl.Values{}
	if !opts.Date.IsZero() {
		q.Set("date", "eq."+dayString(opts.Date))
	}
	q.Set("order", "date.desc,"+tiebreak+".asc")
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	return q
}

func (s *Store) deleteByID(ctx context.Context, table, id, what string) error {
	q := neturl.Values{}
	q.Set("id", "eq."+id)
	body, err := s.client.request(ctx, http.MethodDelete, table, q, nil, preferRepresentation)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if len(gjson.ParseBytes(body).Array()) == 0 {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return nil
}

// --- MetricStore ------------------------------------------------------------

func metricFrom(r gjson.Result) housing.Metric {
	return housing.Metric{
		ID:                       r.Get("id").String(),
		Date:                     parseDay(r.Get("date")),
		MedianHomeValue:          r.Get("median_home_value").Float(),
		MedianNewHomeSalePrice:   r.Get("median_new_home_sale_price").Float(),
		MortgageRate:             r.Get("mortgage_rate").Float(),
		FedFundsRate:             r.Get("fed_funds_rate").Float(),
		TreasuryYield10Y:         r.Get("treasury_yield_10y").Float(),
		CoreInflation:            r.Get("core_inflation").Float(),
		AffordabilityIndex:       r.Get("affordability_index").Float(),
		MedianHouseholdIncome:    r.Get("median_household_income").Float(),
		TotalInventory:           r.Get("total_inventory").Float(),
		NewConstructionInventory: r.Get("new_construction_inventory").Float(),
		BuildingPermits:          r.Get("building_permits").Float(),
	}
}

func (s *Store) UpsertMetric(ctx context.Context, m housing.Metric) (housing.Metric, error) {
	row, err := s.upsertRow(ctx, "housing_metrics", "date", map[string]any{
		"date":                       dayString(m.Date),
		"median_home_value":          m.MedianHomeValue,
		"median_new_home_sale_price": m.MedianNewHomeSalePrice,
		"mortgage_rate":              m.MortgageRate,
		"fed_funds_rate":             m.FedFundsRate,
		"treasury_yield_10y":         m.TreasuryYield10Y,
		"core_inflation":             m.CoreInflation,
		"affordability_index":        m.AffordabilityIndex,
		"median_household_income":    m.MedianHouseholdIncome,
		"total_inventory":            m.TotalInventory,
		"new_construction_inventory": m.NewConstructionInventory,
		"building_permits":           m.BuildingPermits,
	})
	if err != nil {
		return housing.Metric{}, err
	}
	m.Date = housing.Day(m.Date)
	m.ID = row.Get("id").String()
	return m, nil
}

func (s *Store) LatestMetric(ctx context.Context) (housing.Metric, error) {
	row, err := s.selectOne(ctx, "housing_metrics", neturl.Values{"order": {"date.desc"}}, "housing metric")
	if err != nil {
		return housing.Metric{}, err
	}
	return metricFrom(row), nil
}

func (s *Store) RecentMetrics(ctx context.Context, limit int) ([]housing.Metric, error) {
	rows, err := s.selectRows(ctx, "housing_metrics", datedQuery(storage.ListOptions{Limit: limit}, "id"))
	if err != nil {
		return nil, err
	}
	out := make([]housing.Metric, 0, len(rows))
	for _, r := range rows {
		out = append(out, metricFrom(r))
	}
	return out, nil
}

// --- RegionalStore ----------------------------------------------------------

func regionalFrom(r gjson.Result) housing.RegionalAffordability {
	return housing.RegionalAffordability{
		ID:                     r.Get("id").String(),
		Date:                   parseDay(r.Get("date")),
		Region:                 r.Get("region").String(),
		MedianHomePrice:        r.Get("median_home_price").Float(),
		MedianQualifyingIncome: r.Get("median_qualifying_income").Float(),
		MedianFamilyIncome:     r.Get("median_family_income").Float(),
		MedianMortgagePayment:  r.Get("median_mortgage_payment").Float(),
		AffordabilityScore:     r.Get("affordability_score").Float(),
	}
}

func (s *Store) UpsertRegional(ctx context.Context, r housing.RegionalAffordability) (housing.RegionalAffordability, error) {
	if strings.TrimSpace(r.Region) == "" {
		return housing.RegionalAffordability{}, fmt.Errorf("region is required")
	}
	row, err := s.upsertRow(ctx, "regional_affordability", "date,region", map[string]any{
		"date":                     dayString(r.Date),
		"region":                   r.Region,
		"median_home_price":        r.MedianHomePrice,
		"median_qualifying_income": r.MedianQualifyingIncome,
		"median_family_income":     r.MedianFamilyIncome,
		"median_mortgage_payment":  r.MedianMortgagePayment,
		"affordability_score":      r.AffordabilityScore,
	})
	if err != nil {
		return housing.RegionalAffordability{}, err
	}
	r.Date = housing.Day(r.Date)
	r.ID = row.Get("id").String()
	return r, nil
}

func (s *Store) ListRegional(ctx context.Context, opts storage.ListOptions) ([]housing.RegionalAffordability, error) {
	rows, err := s.selectRows(ctx, "regional_affordability", datedQuery(opts, "region"))
	if err != nil {
		return nil, err
	}
	out := make([]housing.RegionalAffordability, 0, len(rows))
	for _, r := range rows {
		out = append(out, regionalFrom(r))
	}
	return out, nil
}

// --- ExpenseStore -----------------------------------------------------------

func builderFrom(r gjson.Result) expense.BuilderExpense {
	return expense.BuilderExpense{
		ID:            r.Get("id").String(),
		Date:          parseDay(r.Get("date")),
		MaterialName:  r.Get("material_name").String(),
		CurrentPrice:  r.Get("current_price").Float(),
		StartPrice:    r.Get("start_price").Float(),
		PercentChange: r.Get("percent_change").Float(),
		TotalChange:   r.Get("total_change").Float(),
		Status:        r.Get("status").String(),
	}
}

func (s *Store) UpsertBuilderExpense(ctx context.Context, e expense.BuilderExpense) (expense.BuilderExpense, error) {
	if strings.TrimSpace(e.MaterialName) == "" {
		return expense.BuilderExpense{}, fmt.Errorf("material_name is required")
	}
	row, err := s.upsertRow(ctx, "builder_expenses", "date,material_name", map[string]any{
		"date":           dayString(e.Date),
		"material_name":  e.MaterialName,
		"current_price":  e.CurrentPrice,
		"start_price":    e.StartPrice,
		"percent_change": e.PercentChange,
		"total_change":   e.TotalChange,
		"status":         e.Status,
	})
	if err != nil {
		return expense.BuilderExpense{}, err
	}
	e.Date = housing.Day(e.Date)
	e.ID = row.Get("id").String()
	return e, nil
}

func (s *Store) ListBuilderExpenses(ctx context.Context, opts storage.ListOptions) ([]expense.BuilderExpense, error) {
	rows, err := s.selectRows(ctx, "builder_expenses", datedQuery(opts, "material_name"))
	if err != nil {
		return nil, err
	}
	out := make([]expense.BuilderExpense, 0, len(rows))
	for _, r := range rows {
		out = append(out, builderFrom(r))
	}
	return out, nil
}

func householdFrom(r gjson.Result) expense.HouseholdExpense {
	return expense.HouseholdExpense{
		ID:            r.Get("id").String(),
		Date:          parseDay(r.Get("date")),
		Category:      r.Get("category").String(),
		ItemName:      r.Get("item_name").String(),
		CurrentPrice:  r.Get("current_price").Float(),
		StartPrice:    r.Get("start_price").Float(),
		PercentChange: r.Get("percent_change").Float(),
	}
}

func (s *Store) UpsertHouseholdExpense(ctx context.Context, e expense.HouseholdExpense) (expense.HouseholdExpense, error) {
	if strings.TrimSpace(e.ItemName) == "" {
		return expense.HouseholdExpense{}, fmt.Errorf("item_name is required")
	}
	row, err := s.upsertRow(ctx, "household_expenses", "date,item_name", map[string]any{
		"date":           dayString(e.Date),
		"category":       e.Category,
		"item_name":      e.ItemName,
		"current_price":  e.CurrentPrice,
		"start_price":    e.StartPrice,
		"percent_change": e.PercentChange,
	})
	if err != nil {
		return expense.HouseholdExpense{}, err
	}
	e.Date = housing.Day(e.Date)
	e.ID = row.Get("id").String()
	return e, nil
}

func (s *Store) ListHouseholdExpenses(ctx context.Context, opts storage.ListOptions) ([]expense.HouseholdExpense, error) {
	rows, err := s.selectRows(ctx, "household_expenses", datedQuery(opts, "item_name"))
	if err != nil {
		return nil, err
	}
	out := make([]expense.HouseholdExpense, 0, len(rows))
	for _, r := range rows {
		out = append(out, householdFrom(r))
	}
	return out, nil
}

// --- CrashStore -------------------------------------------------------------

func crashFrom(r gjson.Result) housing.CrashIndicator {
	return housing.CrashIndicator{
		ID:           r.Get("id").String(),
		Date:         parseDay(r.Get("date")),
		VariableName: r.Get("variable_name").String(),
		Category:     r.Get("category").String(),
		CurrentValue: r.Get("current_value").Float(),
		Points:       int(r.Get("points").Int()),
		RiskTier:     r.Get("risk_tier").String(),
	}
}

func (s *Store) UpsertCrashIndicator(ctx context.Context, c housing.CrashIndicator) (housing.CrashIndicator, error) {
	if strings.TrimSpace(c.VariableName) == "" {
		return housing.CrashIndicator{}, fmt.Errorf("variable_name is required")
	}
	row, err := s.upsertRow(ctx, "crash_indicators", "date,variable_name", map[string]any{
		"date":          dayString(c.Date),
		"variable_name": c.VariableName,
		"category":      c.Category,
		"current_value": c.CurrentValue,
		"points":        c.Points,
		"risk_tier":     c.RiskTier,
	})
	if err != nil {
		return housing.CrashIndicator{}, err
	}
	c.Date = housing.Day(c.Date)
	c.ID = row.Get("id").String()
	return c, nil
}

func (s *Store) ListCrashIndicators(ctx context.Context, opts storage.ListOptions) ([]housing.CrashIndicator, error) {
	rows, err := s.selectRows(ctx, "crash_indicators", datedQuery(opts, "variable_name"))
	if err != nil {
		return nil, err
	}
	out := make([]housing.CrashIndicator, 0, len(rows))
	for _, r := range rows {
		out = append(out, crashFrom(r))
	}
	return out, nil
}

// --- EconomicIndexStore -----------------------------------------------------

func indexFrom(r gjson.Result) housing.EconomicIndex {
	return housing.EconomicIndex{
		ID:         r.Get("id").String(),
		Date:       parseDay(r.Get("date")),
		IndexValue: r.Get("index_value").Float(),
		MoMChange:  r.Get("mom_change").Float(),
		MoMPercent: r.Get("mom_percent").Float(),
		YoYChange:  r.Get("yoy_change").Float(),
		YoYPercent: r.Get("yoy_percent").Float(),
	}
}

func (s *Store) UpsertEconomicIndex(ctx context.Context, idx housing.EconomicIndex) (housing.EconomicIndex, error) {
	row, err := s.upsertRow(ctx, "economic_index", "date", map[string]any{
		"date":        dayString(idx.Date),
		"index_value": idx.IndexValue,
		"mom_change":  idx.MoMChange,
		"mom_percent": idx.MoMPercent,
		"yoy_change":  idx.YoYChange,
		"yoy_percent": idx.YoYPercent,
	})
	if err != nil {
		return housing.EconomicIndex{}, err
	}
	idx.Date = housing.Day(idx.Date)
	idx.ID = row.Get("id").String()
	return idx, nil
}

func (s *Store) GetEconomicIndex(ctx context.Context, date time.Time) (housing.EconomicIndex, error) {
	row, err := s.selectOne(ctx, "economic_index", neturl.Values{"date": {"eq." + dayString(date)}}, "economic index "+dayString(date))
	if err != nil {
		return housing.EconomicIndex{}, err
	}
	return indexFrom(row), nil
}

func (s *Store) LatestEconomicIndex(ctx context.Context) (housing.EconomicIndex, error) {
	row, err := s.selectOne(ctx, "economic_index", neturl.Values{"order": {"date.desc"}}, "economic index")
	if err != nil {
		return housing.EconomicIndex{}, err
	}
	return indexFrom(row), nil
}

func (s *Store) RecentEconomicIndex(ctx context.Context, limit int) ([]housing.EconomicIndex, error) {
	rows, err := s.selectRows(ctx, "economic_index", datedQuery(storage.ListOptions{Limit: limit}, "id"))
	if err != nil {
		return nil, err
	}
	out := make([]housing.EconomicIndex, 0, len(rows))
	for _, r := range rows {
		out = append(out, indexFrom(r))
	}
	return out, nil
}

// --- MetroStore -------------------------------------------------------------

func metroValueFrom(r gjson.Result) metro.Value {
	return metro.Value{
		ID:         r.Get("id").String(),
		RegionID:   int(r.Get("region_id").Int()),
		SizeRank:   int(r.Get("size_rank").Int()),
		RegionName: r.Get("region_name").String(),
		RegionType: r.Get("region_type").String(),
		StateName:  r.Get("state_name").String(),
		Date:       parseDay(r.Get("date")),
		HomeValue:  r.Get("home_value").Float(),
	}
}

func metroRegionFrom(r gjson.Result) metro.Region {
	return metro.Region{
		RegionID:   int(r.Get("region_id").Int()),
		RegionName: r.Get("region_name").String(),
		RegionType: r.Get("region_type").String(),
		StateName:  r.Get("state_name").String(),
		SizeRank:   int(r.Get("size_rank").Int()),
	}
}

// InsertMetroValues posts the batch with ignore-duplicates; PostgREST only
// echoes rows that were actually inserted.
func (s *Store) InsertMetroValues(ctx context.Context, values []metro.Value) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, map[string]any{
			"region_id":   v.RegionID,
			"size_rank":   v.SizeRank,
			"region_name": v.RegionName,
			"region_type": v.RegionType,
			"state_name":  v.StateName,
			"date":        dayString(v.Date),
			"home_value":  v.HomeValue,
		})
	}
	q := neturl.Values{}
	q.Set("on_conflict", "region_id,date")
	q.Set("select", "id")
	body, err := s.client.request(ctx, http.MethodPost, "metro_zhvi", q, rows, preferIgnore)
	if err != nil {
		return 0, fmt.Errorf("insert metro_zhvi: %w", err)
	}
	return len(gjson.ParseBytes(body).Array()), nil
}

func (s *Store) LatestMetroValue(ctx context.Context, regionID int) (metro.Value, error) {
	return s.MetroValueAtOrBefore(ctx, regionID, time.Time{})
}

func (s *Store) MetroValueAtOrBefore(ctx context.Context, regionID int, date time.Time) (metro.Value, error) {
	q := neturl.Values{}
	q.Set("region_id", "eq."+strconv.Itoa(regionID))
	if !date.IsZero() {
		q.Set("date", "lte."+dayString(date))
	}
	q.Set("order", "date.desc")
	row, err := s.selectOne(ctx, "metro_zhvi", q, fmt.Sprintf("metro value for region %d", regionID))
	if err != nil {
		return metro.Value{}, err
	}
	return metroValueFrom(row), nil
}

func (s *Store) GetMetroRegion(ctx context.Context, regionID int) (metro.Region, error) {
	q := neturl.Values{}
	q.Set("select", "region_id,region_name,region_type,state_name,size_rank")
	q.Set("region_id", "eq."+strconv.Itoa(regionID))
	row, err := s.selectOne(ctx, "metro_zhvi", q, fmt.Sprintf("metro region %d", regionID))
	if err != nil {
		return metro.Region{}, err
	}
	return metroRegionFrom(row), nil
}

func (s *Store) FindMetroRegion(ctx context.Context, query, regionType string) (metro.Region, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return metro.Region{}, fmt.Errorf("metro query is required")
	}
	q := neturl.Values{}
	q.Set("select", "region_id,region_name,region_type,state_name,size_rank")
	q.Set("region_name", "ilike.*"+strings.ReplaceAll(query, "*", "")+"*")
	q.Set("region_type", "eq."+regionType)
	q.Set("order", "size_rank.asc.nullslast")
	row, err := s.selectOne(ctx, "metro_zhvi", q, fmt.Sprintf("metro matching %q", query))
	if err != nil {
		return metro.Region{}, err
	}
	return metroRegionFrom(row), nil
}

// ListMetroRegions lists regions present on the newest ZHVI date.
func (s *Store) ListMetroRegions(ctx context.Context, regionType string, limit int) ([]metro.Region, error) {
	latest, err := s.selectOne(ctx, "metro_zhvi", neturl.Values{"select": {"date"}, "order": {"date.desc"}}, "metro data")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []metro.Region{}, nil
		}
		return nil, err
	}
	q := neturl.Values{}
	q.Set("select", "region_id,region_name,region_type,state_name,size_rank")
	q.Set("date", "eq."+latest.Get("date").String())
	if regionType != "" {
		q.Set("region_type", "eq."+regionType)
	}
	q.Set("order", "size_rank.asc,region_id.asc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	rows, err := s.selectRows(ctx, "metro_zhvi", q)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{}, len(rows))
	out := make([]metro.Region, 0, len(rows))
	for _, r := range rows {
		region := metroRegionFrom(r)
		if _, dup := seen[region.RegionID]; dup {
			continue
		}
		seen[region.RegionID] = struct{}{}
		out = append(out, region)
	}
	return out, nil
}

// --- HomeStore --------------------------------------------------------------

func homeFrom(r gjson.Result) advisor.Home {
	h := advisor.Home{
		ID:                     r.Get("id").String(),
		UserID:                 r.Get("user_id").String(),
		Nickname:               r.Get("nickname").String(),
		Address:                r.Get("address").String(),
		City:                   r.Get("city").String(),
		State:                  r.Get("state").String(),
		ZipCode:                r.Get("zip_code").String(),
		PurchasePrice:          r.Get("purchase_price").Float(),
		CurrentMortgageBalance: r.Get("current_mortgage_balance").Float(),
		PropertyType:           r.Get("property_type").String(),
		CreatedAt:              parseTimestamp(r.Get("created_at")),
		UpdatedAt:              parseTimestamp(r.Get("updated_at")),
	}
	if v := r.Get("region_id"); v.Exists() && v.Type == gjson.Number {
		id := int(v.Int())
		h.RegionID = &id
	}
	if v := r.Get("purchase_date"); v.Exists() && v.Type == gjson.String {
		d := parseDay(v)
		h.PurchaseDate = &d
	}
	return h
}

func homeRow(h advisor.Home) map[string]any {
	row := map[string]any{
		"user_id":                  h.UserID,
		"nickname":                 h.Nickname,
		"address":                  h.Address,
		"city":                     h.City,
		"state":                    h.State,
		"zip_code":                 h.ZipCode,
		"region_id":                h.RegionID,
		"purchase_price":           h.PurchasePrice,
		"current_mortgage_balance": h.CurrentMortgageBalance,
		"property_type":            h.PropertyType,
		"purchase_date":            nil,
	}
	if h.PurchaseDate != nil {
		row["purchase_date"] = dayString(*h.PurchaseDate)
	}
	return row
}

func (s *Store) CreateHome(ctx context.Context, h advisor.Home) (advisor.Home, error) {
	row := homeRow(h)
	if h.ID != "" {
		row["id"] = h.ID
	}
	body, err := s.client.request(ctx, http.MethodPost, "user_homes", nil, row, preferRepresentation)
	if err != nil {
		return advisor.Home{}, fmt.Errorf("create home: %w", err)
	}
	return homeFrom(gjson.GetBytes(body, "0")), nil
}

func (s *Store) UpdateHome(ctx context.Context, h advisor.Home) (advisor.Home, error) {
	row := homeRow(h)
	delete(row, "user_id")
	row["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	q := neturl.Values{}
	q.Set("id", "eq."+h.ID)
	body, err := s.client.request(ctx, http.MethodPatch, "user_homes", q, row, preferRepresentation)
	if err != nil {
		return advisor.Home{}, fmt.Errorf("update home: %w", err)
	}
	updated := gjson.GetBytes(body, "0")
	if !updated.Exists() {
		return advisor.Home{}, fmt.Errorf("home %s: %w", h.ID, storage.ErrNotFound)
	}
	return homeFrom(updated), nil
}

func (s *Store) GetHome(ctx context.Context, id string) (advisor.Home, error) {
	row, err := s.selectOne(ctx, "user_homes", neturl.Values{"id": {"eq." + id}}, "home "+id)
	if err != nil {
		return advisor.Home{}, err
	}
	return homeFrom(row), nil
}

func (s *Store) ListHomes(ctx context.Context, userID string) ([]advisor.Home, error) {
	q := neturl.Values{}
	if userID != "" {
		q.Set("user_id", "eq."+userID)
	}
	q.Set("order", "created_at.asc,id.asc")
	rows, err := s.selectRows(ctx, "user_homes", q)
	if err != nil {
		return nil, err
	}
	out := make([]advisor.Home, 0, len(rows))
	for _, r := range rows {
		out = append(out, homeFrom(r))
	}
	return out, nil
}

func (s *Store) DeleteHome(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "user_homes", id, "home")
}

func appraisalFrom(r gjson.Result) advisor.Appraisal {
	return advisor.Appraisal{
		ID:              r.Get("id").String(),
		HomeID:          r.Get("home_id").String(),
		AppraisalDate:   parseDay(r.Get("appraisal_date")),
		AppraisedValue:  r.Get("appraised_value").Float(),
		AppraisalSource: r.Get("appraisal_source").String(),
		Notes:           r.Get("notes").String(),
		CreatedAt:       parseTimestamp(r.Get("created_at")),
	}
}

func (s *Store) CreateAppraisal(ctx context.Context, a advisor.Appraisal) (advisor.Appraisal, error) {
	body, err := s.client.request(ctx, http.MethodPost, "home_appraisals", nil, map[string]any{
		"home_id":          a.HomeID,
		"appraisal_date":   dayString(a.AppraisalDate),
		"appraised_value":  a.AppraisedValue,
		"appraisal_source": a.AppraisalSource,
		"notes":            a.Notes,
	}, preferRepresentation)
	if err != nil {
		return advisor.Appraisal{}, fmt.Errorf("create appraisal: %w", err)
	}
	return appraisalFrom(gjson.GetBytes(body, "0")), nil
}

func (s *Store) ListAppraisals(ctx context.Context, homeID string) ([]advisor.Appraisal, error) {
	q := neturl.Values{}
	q.Set("home_id", "eq."+homeID)
	q.Set("order", "appraisal_date.desc,created_at.desc")
	rows, err := s.selectRows(ctx, "home_appraisals", q)
	if err != nil {
		return nil, err
	}
	out := make([]advisor.Appraisal, 0, len(rows))
	for _, r := range rows {
		out = append(out, appraisalFrom(r))
	}
	return out, nil
}

// --- ScenarioStore ----------------------------------------------------------

func scenarioFrom(r gjson.Result) advisor.Scenario {
	sc := advisor.Scenario{
		ID:           r.Get("id").String(),
		UserID:       r.Get("user_id").String(),
		Name:         r.Get("name").String(),
		HomeID:       r.Get("home_id").String(),
		TargetCity:   r.Get("target_city").String(),
		ScenarioType: advisor.ScenarioType(r.Get("scenario_type").String()),
		CreatedAt:    parseTimestamp(r.Get("created_at")),
		UpdatedAt:    parseTimestamp(r.Get("updated_at")),
	}
	if v := r.Get("target_region_id"); v.Type == gjson.Number {
		id := int(v.Int())
		sc.TargetRegionID = &id
	}
	if v := r.Get("analysis_results"); v.IsObject() {
		var analysis advisor.Analysis
		if err := json.Unmarshal([]byte(v.Raw), &analysis); err == nil {
			sc.AnalysisResults = &analysis
		}
	}
	return sc
}

func scenarioRow(sc advisor.Scenario) map[string]any {
	row := map[string]any{
		"name":             sc.Name,
		"target_city":      sc.TargetCity,
		"target_region_id": sc.TargetRegionID,
		"scenario_type":    string(sc.ScenarioType),
		"analysis_results": sc.AnalysisResults,
		"home_id":          nil,
	}
	if sc.HomeID != "" {
		row["home_id"] = sc.HomeID
	}
	return row
}

func (s *Store) CreateScenario(ctx context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	row := scenarioRow(sc)
	row["user_id"] = sc.UserID
	if sc.ID != "" {
		row["id"] = sc.ID
	}
	body, err := s.client.request(ctx, http.MethodPost, "user_scenarios", nil, row, preferRepresentation)
	if err != nil {
		return advisor.Scenario{}, fmt.Errorf("create scenario: %w", err)
	}
	return scenarioFrom(gjson.GetBytes(body, "0")), nil
}

func (s *Store) UpdateScenario(ctx context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	row := scenarioRow(sc)
	row["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	q := neturl.Values{}
	q.Set("id", "eq."+sc.ID)
	body, err := s.client.request(ctx, http.MethodPatch, "user_scenarios", q, row, preferRepresentation)
	if err != nil {
		return advisor.Scenario{}, fmt.Errorf("update scenario: %w", err)
	}
	updated := gjson.GetBytes(body, "0")
	if !updated.Exists() {
		return advisor.Scenario{}, fmt.Errorf("scenario %s: %w", sc.ID, storage.ErrNotFound)
	}
	return scenarioFrom(updated), nil
}

func (s *Store) GetScenario(ctx context.Context, id string) (advisor.Scenario, error) {
	row, err := s.selectOne(ctx, "user_scenarios", neturl.Values{"id": {"eq." + id}}, "scenario "+id)
	if err != nil {
		return advisor.Scenario{}, err
	}
	return scenarioFrom(row), nil
}

func (s *Store) ListScenarios(ctx context.Context, userID string) ([]advisor.Scenario, error) {
	q := neturl.Values{}
	if userID != "" {
		q.Set("user_id", "eq."+userID)
	}
	q.Set("order", "created_at.desc,id.desc")
	rows, err := s.selectRows(ctx, "user_scenarios", q)
	if err != nil {
		return nil, err
	}
	out := make([]advisor.Scenario, 0, len(rows))
	for _, r := range rows {
		out = append(out, scenarioFrom(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteScenario(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "user_scenarios", id, "scenario")
}
