package housing

import "time"

// DateLayout is the calendar-day format used by every dated table.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string, also accepting a full RFC 3339
// timestamp.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Metric is one row of national housing indicators, unique per date.
// Values that could not be fetched are stored as zero.
type Metric struct {
	ID                       string    `json:"id" db:"id"`
	Date                     time.Time `json:"date" db:"date"`
	MedianHomeValue          float64   `json:"median_home_value" db:"median_home_value"`
	MedianNewHomeSalePrice   float64   `json:"median_new_home_sale_price" db:"median_new_home_sale_price"`
	MortgageRate             float64   `json:"mortgage_rate" db:"mortgage_rate"`
	FedFundsRate             float64   `json:"fed_funds_rate" db:"fed_funds_rate"`
	TreasuryYield10Y         float64   `json:"treasury_yield_10y" db:"treasury_yield_10y"`
	CoreInflation            float64   `json:"core_inflation" db:"core_inflation"`
	AffordabilityIndex       float64   `json:"affordability_index" db:"affordability_index"`
	MedianHouseholdIncome    float64   `json:"median_household_income" db:"median_household_income"`
	TotalInventory           float64   `json:"total_inventory" db:"total_inventory"`
	NewConstructionInventory float64   `json:"new_construction_inventory" db:"new_construction_inventory"`
	BuildingPermits          float64   `json:"building_permits" db:"building_permits"`
}

// RegionalAffordability is unique per (date, region).
type RegionalAffordability struct {
	ID                     string    `json:"id" db:"id"`
	Date                   time.Time `json:"date" db:"date"`
	Region                 string    `json:"region" db:"region"`
	MedianHomePrice        float64   `json:"median_home_price" db:"median_home_price"`
	MedianQualifyingIncome float64   `json:"median_qualifying_income" db:"median_qualifying_income"`
	MedianFamilyIncome     float64   `json:"median_family_income" db:"median_family_income"`
	MedianMortgagePayment  float64   `json:"median_mortgage_payment" db:"median_mortgage_payment"`
	AffordabilityScore     float64   `json:"affordability_score" db:"affordability_score"`
}

// CrashIndicator is unique per (date, variable_name).
type CrashIndicator struct {
	ID           string    `json:"id" db:"id"`
	Date         time.Time `json:"date" db:"date"`
	VariableName string    `json:"variable_name" db:"variable_name"`
	Category     string    `json:"category" db:"category"`
	CurrentValue float64   `json:"current_value" db:"current_value"`
	Points       int       `json:"points" db:"points"`
	RiskTier     string    `json:"risk_tier" db:"risk_tier"`
}

// EconomicIndex is unique per date.
type EconomicIndex struct {
	ID         string    `json:"id" db:"id"`
	Date       time.Time `json:"date" db:"date"`
	IndexValue float64   `json:"index_value" db:"index_value"`
	MoMChange  float64   `json:"mom_change" db:"mom_change"`
	MoMPercent float64   `json:"mom_percent" db:"mom_percent"`
	YoYChange  float64   `json:"yoy_change" db:"yoy_change"`
	YoYPercent float64   `json:"yoy_percent" db:"yoy_percent"`
}
