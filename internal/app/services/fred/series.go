package fred

import "github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"

// National series read by the daily metric sync.
const (
	SeriesMedianHomePrice    = "MSPUS"
	SeriesNewHomePrice       = "MSPNHSUS"
	SeriesMortgageRate30Y    = "MORTGAGE30US"
	SeriesFedFunds           = "FEDFUNDS"
	SeriesTreasury10Y        = "GS10"
	SeriesCoreCPI            = "CPILFESL"
	SeriesAffordabilityIndex = "FIXHAI"
	SeriesHouseholdIncome    = "MEHOINUSA672N"
	SeriesBuildingPermits    = "PERMIT"
)

// Series used only by the historical backfill.
const (
	SeriesStickyCoreCPI        = "CORESTICKM159SFRBATL"
	SeriesActiveListings       = "ACTLISCOU"
	SeriesNewConstructionInv   = "NINVUSM156N"
	SeriesHousingAffordability = "HAI"
)

// CurrentSeries are fetched by the daily metric sync, one observation each.
var CurrentSeries = []string{
	SeriesMedianHomePrice,
	SeriesNewHomePrice,
	SeriesMortgageRate30Y,
	SeriesFedFunds,
	SeriesTreasury10Y,
	SeriesCoreCPI,
	SeriesAffordabilityIndex,
	SeriesHouseholdIncome,
	SeriesBuildingPermits,
}

// HistorySeries are merged by date during backfill.
var HistorySeries = []string{
	SeriesMedianHomePrice,
	SeriesNewHomePrice,
	SeriesMortgageRate30Y,
	SeriesFedFunds,
	SeriesTreasury10Y,
	SeriesStickyCoreCPI,
	SeriesActiveListings,
	SeriesNewConstructionInv,
	SeriesBuildingPermits,
	SeriesHousingAffordability,
	SeriesHouseholdIncome,
}

// Region is a census region with its price series and income adjustment
// relative to the national median.
type Region struct {
	Name             string
	Series           string
	HistorySeries    string
	IncomeAdjustment float64
}

// Regions lists the four census regions.
var Regions = []Region{
	{Name: "Northeast", Series: "MEDDAYONAA", HistorySeries: "MEDLISPRIENT", IncomeAdjustment: 1.15},
	{Name: "Midwest", Series: "MEDDAYONAM", HistorySeries: "MEDLISPRIMWST", IncomeAdjustment: 0.90},
	{Name: "South", Series: "MEDDAYONAS", HistorySeries: "MEDLISPRISOU", IncomeAdjustment: 0.85},
	{Name: "West", Series: "MEDDAYONAW", HistorySeries: "MEDLISPRIWST", IncomeAdjustment: 1.10},
}

// NationalMedianIncome is the base for regional income estimates.
const NationalMedianIncome = 83730

// Materials are the producer price index series tracked for builders.
var Materials = []expense.Material{
	{ID: "lumber", Name: "Lumber & Wood Products", Series: "WPU081", Unit: "index"},
	{ID: "steel", Name: "Steel Mill Products", Series: "WPU101", Unit: "index"},
	{ID: "copper", Name: "Copper & Brass", Series: "WPU102105", Unit: "index"},
	{ID: "aluminum", Name: "Aluminum Mill Shapes", Series: "WPU1023", Unit: "index"},
	{ID: "cement", Name: "Cement", Series: "WPU1322", Unit: "index"},
	{ID: "concrete", Name: "Concrete Products", Series: "WPU1333", Unit: "index"},
	{ID: "gypsum", Name: "Gypsum Products", Series: "WPU1362", Unit: "index"},
	{ID: "insulation", Name: "Insulation Materials", Series: "WPU1364", Unit: "index"},
	{ID: "windows", Name: "Windows & Doors", Series: "WPU1371", Unit: "index"},
	{ID: "plumbing", Name: "Plumbing Fixtures", Series: "WPU1374", Unit: "index"},
	{ID: "electrical", Name: "Electrical Equipment", Series: "WPU1382", Unit: "index"},
	{ID: "hvac", Name: "HVAC Equipment", Series: "WPU1383", Unit: "index"},
	{ID: "paint", Name: "Paint & Coatings", Series: "WPU141", Unit: "index"},
	{ID: "flooring", Name: "Flooring Materials", Series: "WPU142", Unit: "index"},
	{ID: "roofing", Name: "Roofing Materials", Series: "WPU143", Unit: "index"},
}

// HouseholdItems are the consumer price series tracked per category.
var HouseholdItems = []expense.HouseholdItem{
	{Category: "Housing", Name: "Rent", Series: "CUUR0000SEHA"},
	{Category: "Housing", Name: "Owners Equivalent Rent", Series: "CUUR0000SEHC"},
	{Category: "Utilities", Name: "Electricity", Series: "APU000072610"},
	{Category: "Utilities", Name: "Natural Gas", Series: "APU000072610"},
	{Category: "Food", Name: "Food at Home", Series: "CUUR0000SAF11"},
	{Category: "Food", Name: "Food Away", Series: "CUUR0000SEFV"},
	{Category: "Transportation", Name: "Gasoline", Series: "CUUR0000SETB01"},
	{Category: "Transportation", Name: "New Vehicles", Series: "CUUR0000SETA01"},
	{Category: "Healthcare", Name: "Medical Care", Series: "CUUR0000SAM"},
	{Category: "Healthcare", Name: "Health Insurance", Series: "CUUR0000SEMC01"},
	{Category: "Other", Name: "Apparel", Series: "CUUR0000SAA"},
	{Category: "Other", Name: "Entertainment", Series: "CUUR0000SAR"},
}
