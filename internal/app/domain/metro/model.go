package metro

import "time"

// RegionTypeMSA marks metropolitan statistical areas in ZHVI data.
const RegionTypeMSA = "msa"

// Value is one ZHVI observation, unique per (region_id, date).
type Value struct {
	ID         string    `json:"id" db:"id"`
	RegionID   int       `json:"region_id" db:"region_id"`
	SizeRank   int       `json:"size_rank" db:"size_rank"`
	RegionName string    `json:"region_name" db:"region_name"`
	RegionType string    `json:"region_type" db:"region_type"`
	StateName  string    `json:"state_name" db:"state_name"`
	Date       time.Time `json:"date" db:"date"`
	HomeValue  float64   `json:"home_value" db:"home_value"`
}

// Region identifies a metro area.
type Region struct {
	RegionID   int    `json:"region_id" db:"region_id"`
	RegionName string `json:"region_name" db:"region_name"`
	RegionType string `json:"region_type" db:"region_type"`
	StateName  string `json:"state_name" db:"state_name"`
	SizeRank   int    `json:"size_rank" db:"size_rank"`
}

// Direction classifies a metro's year-over-year movement.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Stable  Direction = "stable"
)

// Trend summarises recent price movement in a metro.
type Trend struct {
	RegionID         int       `json:"regionId"`
	RegionName       string    `json:"regionName"`
	CurrentValue     float64   `json:"currentValue"`
	Value6MonthsAgo  float64   `json:"value6MonthsAgo"`
	Value12MonthsAgo float64   `json:"value12MonthsAgo"`
	MoMChange        float64   `json:"momChange"`
	YoYChange        float64   `json:"yoyChange"`
	TrendDirection   Direction `json:"trendDirection"`
	AnnualizedGrowth float64   `json:"annualizedGrowth"`
}
