package advisor

import (
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
)

// Home is a property owned by a user.
type Home struct {
	ID                     string     `json:"id" db:"id"`
	UserID                 string     `json:"user_id" db:"user_id"`
	Nickname               string     `json:"nickname" db:"nickname"`
	Address                string     `json:"address" db:"address"`
	City                   string     `json:"city" db:"city"`
	State                  string     `json:"state" db:"state"`
	ZipCode                string     `json:"zip_code" db:"zip_code"`
	RegionID               *int       `json:"region_id" db:"region_id"`
	PurchasePrice          float64    `json:"purchase_price" db:"purchase_price"`
	PurchaseDate           *time.Time `json:"purchase_date" db:"purchase_date"`
	CurrentMortgageBalance float64    `json:"current_mortgage_balance" db:"current_mortgage_balance"`
	PropertyType           string     `json:"property_type" db:"property_type"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// Appraisal records a valuation of a home.
type Appraisal struct {
	ID              string    `json:"id" db:"id"`
	HomeID          string    `json:"home_id" db:"home_id"`
	AppraisalDate   time.Time `json:"appraisal_date" db:"appraisal_date"`
	AppraisedValue  float64   `json:"appraised_value" db:"appraised_value"`
	AppraisalSource string    `json:"appraisal_source" db:"appraisal_source"`
	Notes           string    `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ScenarioType enumerates the relocation strategies a user can evaluate.
type ScenarioType string

const (
	SellAndBuy        ScenarioType = "sell_and_buy"
	RentCurrentBuyNew ScenarioType = "rent_current_buy_new"
	KeepAndBuy        ScenarioType = "keep_and_buy"
)

// Valid reports whether t is a known scenario type.
func (t ScenarioType) Valid() bool {
	switch t {
	case SellAndBuy, RentCurrentBuyNew, KeepAndBuy:
		return true
	}
	return false
}

// Scenario is a saved relocation analysis.
type Scenario struct {
	ID              string       `json:"id" db:"id"`
	UserID          string       `json:"user_id" db:"user_id"`
	Name            string       `json:"name" db:"name"`
	HomeID          string       `json:"home_id" db:"home_id"`
	TargetCity      string       `json:"target_city" db:"target_city"`
	TargetRegionID  *int         `json:"target_region_id" db:"target_region_id"`
	ScenarioType    ScenarioType `json:"scenario_type" db:"scenario_type"`
	AnalysisResults *Analysis    `json:"analysis_results" db:"-"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// Recommendation is the advice produced by a scenario analysis.
type Recommendation string

const (
	SellNow  Recommendation = "SELL_NOW"
	Wait     Recommendation = "WAIT"
	Hold     Recommendation = "HOLD"
	Relocate Recommendation = "RELOCATE"
)

// Confidence qualifies a recommendation.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// HomeAnalysis is the equity position of a home if sold today.
type HomeAnalysis struct {
	HomeValue       float64 `json:"homeValue"`
	MortgageBalance float64 `json:"mortgageBalance"`
	Equity          float64 `json:"equity"`
	SellingCosts    float64 `json:"sellingCosts"`
	NetProceeds     float64 `json:"netProceeds"`
	CurrentLTV      float64 `json:"currentLtv"`
}

// Projection holds projected home values.
type Projection struct {
	SixMonths    float64 `json:"6months"`
	TwelveMonths float64 `json:"12months"`
}

// Financials describes the cash position of a move.
type Financials struct {
	CashFromSale              float64 `json:"cashFromSale"`
	DownPaymentNeeded         float64 `json:"downPaymentNeeded"`
	RemainingAfterDownPayment float64 `json:"remainingAfterDownPayment"`
	CanAffordMove             bool    `json:"canAffordMove"`
}

// Analysis is the full result of evaluating a relocation scenario.
type Analysis struct {
	ScenarioType       ScenarioType   `json:"scenarioType"`
	HomeAnalysis       HomeAnalysis   `json:"homeAnalysis"`
	CurrentMetro       *metro.Trend   `json:"currentMetro"`
	TargetMetro        *metro.Trend   `json:"targetMetro"`
	ProjectedHomeValue Projection     `json:"projectedHomeValue"`
	TargetHomePrice    float64        `json:"targetHomePrice"`
	Recommendation     Recommendation `json:"recommendation"`
	Confidence         Confidence     `json:"confidence"`
	Reasoning          []string       `json:"reasoning"`
	Financials         Financials     `json:"financials"`
}
