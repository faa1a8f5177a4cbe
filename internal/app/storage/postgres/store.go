package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/housing"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.MetricStore = (*Store)(nil)
var _ storage.RegionalStore = (*Store)(nil)
var _ storage.ExpenseStore = (*Store)(nil)
var _ storage.CrashStore = (*Store)(nil)
var _ storage.EconomicIndexStore = (*Store)(nil)
var _ storage.MetroStore = (*Store)(nil)
var _ storage.HomeStore = (*Store)(nil)
var _ storage.ScenarioStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// upsert runs a named INSERT ... RETURNING id statement and returns the id of
// the inserted or updated row.
func (s *Store) upsert(ctx context.Context, query string, arg any) (string, error) {
	rows, err := s.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var id string
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return id, nil
}

// listDated builds "SELECT cols FROM table [WHERE date = $1] ORDER BY date
// DESC, tiebreak [LIMIT n]".
func listDated(table, cols, tiebreak string, opts storage.ListOptions) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, table)
	if !opts.Date.IsZero() {
		args = append(args, housing.Day(opts.Date))
		fmt.Fprintf(&b, " WHERE date = $%d", len(args))
	}
	fmt.Fprintf(&b, " ORDER BY date DESC, %s", tiebreak)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// --- MetricStore ------------------------------------------------------------

const metricColumns = `id, date,
	COALESCE(median_home_value, 0) AS median_home_value,
	COALESCE(median_new_home_sale_price, 0) AS median_new_home_sale_price,
	COALESCE(mortgage_rate, 0) AS mortgage_rate,
	COALESCE(fed_funds_rate, 0) AS fed_funds_rate,
	COALESCE(treasury_yield_10y, 0) AS treasury_yield_10y,
	COALESCE(core_inflation, 0) AS core_inflation,
	COALESCE(affordability_index, 0) AS affordability_index,
	COALESCE(median_household_income, 0) AS median_household_income,
	COALESCE(total_inventory, 0) AS total_inventory,
	COALESCE(new_construction_inventory, 0) AS new_construction_inventory,
	COALESCE(building_permits, 0) AS building_permits`

func (s *Store) UpsertMetric(ctx context.Context, m housing.Metric) (housing.Metric, error) {
	m.Date = housing.Day(m.Date)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO housing_metrics (id, date, median_home_value, median_new_home_sale_price, mortgage_rate,
			fed_funds_rate, treasury_yield_10y, core_inflation, affordability_index, median_household_income,
			total_inventory, new_construction_inventory, building_permits)
		VALUES (:id, :date, :median_home_value, :median_new_home_sale_price, :mortgage_rate,
			:fed_funds_rate, :treasury_yield_10y, :core_inflation, :affordability_index, :median_household_income,
			:total_inventory, :new_construction_inventory, :building_permits)
		ON CONFLICT (date) DO UPDATE SET
			median_home_value = EXCLUDED.median_home_value,
			median_new_home_sale_price = EXCLUDED.median_new_home_sale_price,
			mortgage_rate = EXCLUDED.mortgage_rate,
			fed_funds_rate = EXCLUDED.fed_funds_rate,
			treasury_yield_10y = EXCLUDED.treasury_yield_10y,
			core_inflation = EXCLUDED.core_inflation,
			affordability_index = EXCLUDED.affordability_index,
			median_household_income = EXCLUDED.median_household_income,
			total_inventory = EXCLUDED.total_inventory,
			new_construction_inventory = EXCLUDED.new_construction_inventory,
			building_permits = EXCLUDED.building_permits
		RETURNING id
	`, m)
	if err != nil {
		return housing.Metric{}, err
	}
	if id != "" {
		m.ID = id
	}
	return m, nil
}

func (s *Store) LatestMetric(ctx context.Context) (housing.Metric, error) {
	var m housing.Metric
	err := s.db.GetContext(ctx, &m, `SELECT `+metricColumns+` FROM housing_metrics ORDER BY date DESC LIMIT 1`)
	if err != nil {
		return housing.Metric{}, notFound(err, "housing metric")
	}
	return m, nil
}

func (s *Store) RecentMetrics(ctx context.Context, limit int) ([]housing.Metric, error) {
	query, args := listDated("housing_metrics", metricColumns, "id", storage.ListOptions{Limit: limit})
	var out []housing.Metric
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- RegionalStore ----------------------------------------------------------

const regionalColumns = `id, date, region,
	COALESCE(median_home_price, 0) AS median_home_price,
	COALESCE(median_qualifying_income, 0) AS median_qualifying_income,
	COALESCE(median_family_income, 0) AS median_family_income,
	COALESCE(median_mortgage_payment, 0) AS median_mortgage_payment,
	COALESCE(affordability_score, 0) AS affordability_score`

func (s *Store) UpsertRegional(ctx context.Context, r housing.RegionalAffordability) (housing.RegionalAffordability, error) {
	if strings.TrimSpace(r.Region) == "" {
		return housing.RegionalAffordability{}, fmt.Errorf("region is required")
	}
	r.Date = housing.Day(r.Date)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO regional_affordability (id, date, region, median_home_price, median_qualifying_income,
			median_family_income, median_mortgage_payment, affordability_score)
		VALUES (:id, :date, :region, :median_home_price, :median_qualifying_income,
			:median_family_income, :median_mortgage_payment, :affordability_score)
		ON CONFLICT (date, region) DO UPDATE SET
			median_home_price = EXCLUDED.median_home_price,
			median_qualifying_income = EXCLUDED.median_qualifying_income,
			median_family_income = EXCLUDED.median_family_income,
			median_mortgage_payment = EXCLUDED.median_mortgage_payment,
			affordability_score = EXCLUDED.affordability_score
		RETURNING id
	`, r)
	if err != nil {
		return housing.RegionalAffordability{}, err
	}
	if id != "" {
		r.ID = id
	}
	return r, nil
}

func (s *Store) ListRegional(ctx context.Context, opts storage.ListOptions) ([]housing.RegionalAffordability, error) {
	query, args := listDated("regional_affordability", regionalColumns, "region", opts)
	var out []housing.RegionalAffordability
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- ExpenseStore -----------------------------------------------------------

const builderColumns = `id, date, material_name,
	COALESCE(current_price, 0) AS current_price,
	COALESCE(start_price, 0) AS start_price,
	COALESCE(percent_change, 0) AS percent_change,
	COALESCE(total_change, 0) AS total_change,
	COALESCE(status, '') AS status`

func (s *Store) UpsertBuilderExpense(ctx context.Context, e expense.BuilderExpense) (expense.BuilderExpense, error) {
	if strings.TrimSpace(e.MaterialName) == "" {
		return expense.BuilderExpense{}, fmt.Errorf("material_name is required")
	}
	e.Date = housing.Day(e.Date)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO builder_expenses (id, date, material_name, current_price, start_price, percent_change, total_change, status)
		VALUES (:id, :date, :material_name, :current_price, :start_price, :percent_change, :total_change, :status)
		ON CONFLICT (date, material_name) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			start_price = EXCLUDED.start_price,
			percent_change = EXCLUDED.percent_change,
			total_change = EXCLUDED.total_change,
			status = EXCLUDED.status
		RETURNING id
	`, e)
	if err != nil {
		return expense.BuilderExpense{}, err
	}
	if id != "" {
		e.ID = id
	}
	return e, nil
}

func (s *Store) ListBuilderExpenses(ctx context.Context, opts storage.ListOptions) ([]expense.BuilderExpense, error) {
	query, args := listDated("builder_expenses", builderColumns, "material_name", opts)
	var out []expense.BuilderExpense
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

const householdColumns = `id, date, category, item_name,
	COALESCE(current_price, 0) AS current_price,
	COALESCE(start_price, 0) AS start_price,
	COALESCE(percent_change, 0) AS percent_change`

func (s *Store) UpsertHouseholdExpense(ctx context.Context, e expense.HouseholdExpense) (expense.HouseholdExpense, error) {
	if strings.TrimSpace(e.ItemName) == "" {
		return expense.HouseholdExpense{}, fmt.Errorf("item_name is required")
	}
	e.Date = housing.Day(e.Date)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO household_expenses (id, date, category, item_name, current_price, start_price, percent_change)
		VALUES (:id, :date, :category, :item_name, :current_price, :start_price, :percent_change)
		ON CONFLICT (date, item_name) DO UPDATE SET
			category = EXCLUDED.category,
			current_price = EXCLUDED.current_price,
			start_price = EXCLUDED.start_price,
			percent_change = EXCLUDED.percent_change
		RETURNING id
	`, e)
	if err != nil {
		return expense.HouseholdExpense{}, err
	}
	if id != "" {
		e.ID = id
	}
	return e, nil
}

func (s *Store) ListHouseholdExpenses(ctx context.Context, opts storage.ListOptions) ([]expense.HouseholdExpense, error) {
	query, args := listDated("household_expenses", householdColumns, "item_name", opts)
	var out []expense.HouseholdExpense
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- CrashStore -------------------------------------------------------------

const crashColumns = `id, date, variable_name, category,
	COALESCE(current_value, 0) AS current_value,
	COALESCE(points, 0) AS points,
	COALESCE(risk_tier, '') AS risk_tier`

func (s *Store) UpsertCrashIndicator(ctx context.Context, c housing.CrashIndicator) (housing.CrashIndicator, error) {
	if strings.TrimSpace(c.VariableName) == "" {
		return housing.CrashIndicator{}, fmt.Errorf("variable_name is required")
	}
	c.Date = housing.Day(c.Date)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO crash_indicators (id, date, variable_name, category, current_value, points, risk_tier)
		VALUES (:id, :date, :variable_name, :category, :current_value, :points, :risk_tier)
		ON CONFLICT (date, variable_name) DO UPDATE SET
			category = EXCLUDED.category,
			current_value = EXCLUDED.current_value,
			points = EXCLUDED.points,
			risk_tier = EXCLUDED.risk_tier
		RETURNING id
	`, c)
	if err != nil {
		return housing.CrashIndicator{}, err
	}
	if id != "" {
		c.ID = id
	}
	return c, nil
}

func (s *Store) ListCrashIndicators(ctx context.Context, opts storage.ListOptions) ([]housing.CrashIndicator, error) {
	query, args := listDated("crash_indicators", crashColumns, "variable_name", opts)
	var out []housing.CrashIndicator
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- EconomicIndexStore -----------------------------------------------------

const indexColumns = `id, date,
	COALESCE(index_value, 0) AS index_value,
	COALESCE(mom_change, 0) AS mom_change,
	COALESCE(mom_percent, 0) AS mom_percent,
	COALESCE(yoy_change, 0) AS yoy_change,
	COALESCE(yoy_percent, 0) AS yoy_percent`

func (s *Store) UpsertEconomicIndex(ctx context.Context, idx housing.EconomicIndex) (housing.EconomicIndex, error) {
	idx.Date = housing.Day(idx.Date)
	if idx.ID == "" {
		idx.ID = uuid.NewString()
	}
	id, err := s.upsert(ctx, `
		INSERT INTO economic_index (id, date, index_value, mom_change, mom_percent, yoy_change, yoy_percent)
		VALUES (:id, :date, :index_value, :mom_change, :mom_percent, :yoy_change, :yoy_percent)
		ON CONFLICT (date) DO UPDATE SET
			index_value = EXCLUDED.index_value,
			mom_change = EXCLUDED.mom_change,
			mom_percent = EXCLUDED.mom_percent,
			yoy_change = EXCLUDED.yoy_change,
			yoy_percent = EXCLUDED.yoy_percent
		RETURNING id
	`, idx)
	if err != nil {
		return housing.EconomicIndex{}, err
	}
	if id != "" {
		idx.ID = id
	}
	return idx, nil
}

func (s *Store) GetEconomicIndex(ctx context.Context, date time.Time) (housing.EconomicIndex, error) {
	var idx housing.EconomicIndex
	err := s.db.GetContext(ctx, &idx, `SELECT `+indexColumns+` FROM economic_index WHERE date = $1`, housing.Day(date))
	if err != nil {
		return housing.EconomicIndex{}, notFound(err, "economic index")
	}
	return idx, nil
}

func (s *Store) LatestEconomicIndex(ctx context.Context) (housing.EconomicIndex, error) {
	var idx housing.EconomicIndex
	err := s.db.GetContext(ctx, &idx, `SELECT `+indexColumns+` FROM economic_index ORDER BY date DESC LIMIT 1`)
	if err != nil {
		return housing.EconomicIndex{}, notFound(err, "economic index")
	}
	return idx, nil
}

func (s *Store) RecentEconomicIndex(ctx context.Context, limit int) ([]housing.EconomicIndex, error) {
	query, args := listDated("economic_index", indexColumns, "id", storage.ListOptions{Limit: limit})
	var out []housing.EconomicIndex
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- MetroStore -------------------------------------------------------------

const metroValueColumns = `id, region_id,
	COALESCE(size_rank, 0) AS size_rank,
	region_name, region_type,
	COALESCE(state_name, '') AS state_name,
	date,
	COALESCE(home_value, 0) AS home_value`

const metroRegionColumns = `region_id, region_name, region_type,
	COALESCE(state_name, '') AS state_name,
	COALESCE(size_rank, 0) AS size_rank`

// InsertMetroValues inserts in a single transaction; existing (region_id,
// date) pairs are left untouched.
func (s *Store) InsertMetroValues(ctx context.Context, values []metro.Value) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO metro_zhvi (id, region_id, size_rank, region_name, region_type, state_name, date, home_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (region_id, date) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, v := range values {
		res, err := stmt.ExecContext(ctx, uuid.NewString(), v.RegionID, v.SizeRank, v.RegionName, v.RegionType,
			v.StateName, housing.Day(v.Date), v.HomeValue)
		if err != nil {
			return 0, fmt.Errorf("insert region %d %s: %w", v.RegionID, v.Date.Format(housing.DateLayout), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) LatestMetroValue(ctx context.Context, regionID int) (metro.Value, error) {
	var v metro.Value
	err := s.db.GetContext(ctx, &v, `
		SELECT `+metroValueColumns+`
		FROM metro_zhvi
		WHERE region_id = $1
		ORDER BY date DESC
		LIMIT 1
	`, regionID)
	if err != nil {
		return metro.Value{}, notFound(err, fmt.Sprintf("metro value for region %d", regionID))
	}
	return v, nil
}

func (s *Store) MetroValueAtOrBefore(ctx context.Context, regionID int, date time.Time) (metro.Value, error) {
	if date.IsZero() {
		return s.LatestMetroValue(ctx, regionID)
	}
	var v metro.Value
	err := s.db.GetContext(ctx, &v, `
		SELECT `+metroValueColumns+`
		FROM metro_zhvi
		WHERE region_id = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`, regionID, housing.Day(date))
	if err != nil {
		return metro.Value{}, notFound(err, fmt.Sprintf("metro value for region %d", regionID))
	}
	return v, nil
}

func (s *Store) GetMetroRegion(ctx context.Context, regionID int) (metro.Region, error) {
	var r metro.Region
	err := s.db.GetContext(ctx, &r, `SELECT `+metroRegionColumns+` FROM metro_zhvi WHERE region_id = $1 LIMIT 1`, regionID)
	if err != nil {
		return metro.Region{}, notFound(err, fmt.Sprintf("metro region %d", regionID))
	}
	return r, nil
}

func (s *Store) FindMetroRegion(ctx context.Context, query, regionType string) (metro.Region, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return metro.Region{}, fmt.Errorf("metro query is required")
	}
	var r metro.Region
	err := s.db.GetContext(ctx, &r, `
		SELECT `+metroRegionColumns+`
		FROM metro_zhvi
		WHERE region_name ILIKE $1 AND region_type = $2
		ORDER BY size_rank NULLS LAST, region_id
		LIMIT 1
	`, "%"+likeEscaper.Replace(query)+"%", regionType)
	if err != nil {
		return metro.Region{}, notFound(err, fmt.Sprintf("metro matching %q", query))
	}
	return r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) ListMetroRegions(ctx context.Context, regionType string, limit int) ([]metro.Region, error) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT * FROM (SELECT DISTINCT ON (region_id) ` + metroRegionColumns + ` FROM metro_zhvi`)
	if regionType != "" {
		args = append(args, regionType)
		fmt.Fprintf(&b, " WHERE region_type = $%d", len(args))
	}
	b.WriteString(" ORDER BY region_id) r ORDER BY size_rank, region_id")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	var out []metro.Region
	if err := s.db.SelectContext(ctx, &out, b.String(), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// --- HomeStore --------------------------------------------------------------

const homeColumns = `id, user_id,
	COALESCE(nickname, '') AS nickname,
	COALESCE(address, '') AS address,
	city, state,
	COALESCE(zip_code, '') AS zip_code,
	region_id,
	COALESCE(purchase_price, 0) AS purchase_price,
	purchase_date,
	COALESCE(current_mortgage_balance, 0) AS current_mortgage_balance,
	COALESCE(property_type, '') AS property_type,
	created_at, updated_at`

func (s *Store) CreateHome(ctx context.Context, h advisor.Home) (advisor.Home, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO user_homes (id, user_id, nickname, address, city, state, zip_code, region_id,
			purchase_price, purchase_date, current_mortgage_balance, property_type, created_at, updated_at)
		VALUES (:id, :user_id, :nickname, :address, :city, :state, :zip_code, :region_id,
			:purchase_price, :purchase_date, :current_mortgage_balance, :property_type, :created_at, :updated_at)
	`, h)
	if err != nil {
		return advisor.Home{}, err
	}
	return h, nil
}

func (s *Store) UpdateHome(ctx context.Context, h advisor.Home) (advisor.Home, error) {
	existing, err := s.GetHome(ctx, h.ID)
	if err != nil {
		return advisor.Home{}, err
	}
	h.UserID = existing.UserID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE user_homes
		SET nickname = :nickname, address = :address, city = :city, state = :state, zip_code = :zip_code,
			region_id = :region_id, purchase_price = :purchase_price, purchase_date = :purchase_date,
			current_mortgage_balance = :current_mortgage_balance, property_type = :property_type,
			updated_at = :updated_at
		WHERE id = :id
	`, h)
	if err != nil {
		return advisor.Home{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return advisor.Home{}, fmt.Errorf("home %s: %w", h.ID, storage.ErrNotFound)
	}
	return h, nil
}

func (s *Store) GetHome(ctx context.Context, id string) (advisor.Home, error) {
	var h advisor.Home
	if err := s.db.GetContext(ctx, &h, `SELECT `+homeColumns+` FROM user_homes WHERE id = $1`, id); err != nil {
		return advisor.Home{}, notFound(err, "home "+id)
	}
	return h, nil
}

func (s *Store) ListHomes(ctx context.Context, userID string) ([]advisor.Home, error) {
	query := `SELECT ` + homeColumns + ` FROM user_homes`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, id`

	var out []advisor.Home
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteHome(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_homes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("home %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateAppraisal(ctx context.Context, a advisor.Appraisal) (advisor.Appraisal, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.AppraisalDate = housing.Day(a.AppraisalDate)
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO home_appraisals (id, home_id, appraisal_date, appraised_value, appraisal_source, notes, created_at)
		VALUES (:id, :home_id, :appraisal_date, :appraised_value, :appraisal_source, :notes, :created_at)
	`, a)
	if err != nil {
		return advisor.Appraisal{}, err
	}
	return a, nil
}

func (s *Store) ListAppraisals(ctx context.Context, homeID string) ([]advisor.Appraisal, error) {
	var out []advisor.Appraisal
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, home_id, appraisal_date, appraised_value,
			COALESCE(appraisal_source, '') AS appraisal_source,
			COALESCE(notes, '') AS notes,
			created_at
		FROM home_appraisals
		WHERE home_id = $1
		ORDER BY appraisal_date DESC, created_at DESC
	`, homeID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- ScenarioStore ----------------------------------------------------------

type scenarioRow struct {
	advisor.Scenario
	HomeIDRaw   sql.NullString `db:"home_id_raw"`
	AnalysisRaw []byte         `db:"analysis_results"`
}

const scenarioColumns = `id, user_id, name,
	home_id AS home_id_raw,
	target_city, target_region_id, scenario_type, analysis_results, created_at, updated_at`

func (r scenarioRow) toDomain() advisor.Scenario {
	sc := r.Scenario
	sc.HomeID = r.HomeIDRaw.String
	if len(r.AnalysisRaw) > 0 {
		var analysis advisor.Analysis
		if err := json.Unmarshal(r.AnalysisRaw, &analysis); err == nil {
			sc.AnalysisResults = &analysis
		}
	}
	return sc
}

func marshalAnalysis(a *advisor.Analysis) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateScenario(ctx context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now

	analysisJSON, err := marshalAnalysis(sc.AnalysisResults)
	if err != nil {
		return advisor.Scenario{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_scenarios (id, user_id, name, home_id, target_city, target_region_id, scenario_type,
			analysis_results, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sc.ID, sc.UserID, sc.Name, nullableString(sc.HomeID), sc.TargetCity, sc.TargetRegionID, string(sc.ScenarioType),
		analysisJSON, sc.CreatedAt, sc.UpdatedAt)
	if err != nil {
		return advisor.Scenario{}, err
	}
	return sc, nil
}

func (s *Store) UpdateScenario(ctx context.Context, sc advisor.Scenario) (advisor.Scenario, error) {
	existing, err := s.GetScenario(ctx, sc.ID)
	if err != nil {
		return advisor.Scenario{}, err
	}
	sc.UserID = existing.UserID
	sc.CreatedAt = existing.CreatedAt
	sc.UpdatedAt = time.Now().UTC()

	analysisJSON, err := marshalAnalysis(sc.AnalysisResults)
	if err != nil {
		return advisor.Scenario{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_scenarios
		SET name = $2, home_id = $3, target_city = $4, target_region_id = $5, scenario_type = $6,
			analysis_results = $7, updated_at = $8
		WHERE id = $1
	`, sc.ID, sc.Name, nullableString(sc.HomeID), sc.TargetCity, sc.TargetRegionID, string(sc.ScenarioType),
		analysisJSON, sc.UpdatedAt)
	if err != nil {
		return advisor.Scenario{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return advisor.Scenario{}, fmt.Errorf("scenario %s: %w", sc.ID, storage.ErrNotFound)
	}
	return sc, nil
}

func (s *Store) GetScenario(ctx context.Context, id string) (advisor.Scenario, error) {
	var row scenarioRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+scenarioColumns+` FROM user_scenarios WHERE id = $1`, id); err != nil {
		return advisor.Scenario{}, notFound(err, "scenario "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListScenarios(ctx context.Context, userID string) ([]advisor.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM user_scenarios`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []scenarioRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]advisor.Scenario, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteScenario(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_scenarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("scenario %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
