package seed

type material struct {
	name       string
	basePrice  float64
	volatility float64
}

var materials = []material{
	{"Lumber & Wood Products", 280, 0.15},
	{"Steel Mill Products", 185, 0.12},
	{"Copper & Brass", 420, 0.18},
	{"Aluminum Mill Shapes", 165, 0.10},
	{"Cement", 135, 0.08},
	{"Concrete Products", 195, 0.09},
	{"Gypsum Products", 245, 0.11},
	{"Insulation Materials", 175, 0.13},
	{"Windows & Doors", 155, 0.07},
	{"Plumbing Fixtures", 225, 0.09},
	{"Electrical Equipment", 185, 0.10},
	{"HVAC Equipment", 265, 0.11},
	{"Paint & Coatings", 145, 0.08},
	{"Flooring Materials", 195, 0.09},
	{"Roofing Materials", 215, 0.10},
}

type householdItem struct {
	category       string
	name           string
	basePrice      float64
	highVolatility bool
}

var householdItems = []householdItem{
	{"Housing", "Rent", 1450, false},
	{"Housing", "Owners Equivalent Rent", 1650, false},
	{"Housing", "Household Insurance", 145, false},
	{"Utilities", "Electricity", 165, false},
	{"Utilities", "Natural Gas", 85, false},
	{"Utilities", "Water & Sewer", 65, false},
	{"Utilities", "Internet", 75, false},
	{"Food", "Food at Home", 485, false},
	{"Food", "Food Away", 325, false},
	{"Transportation", "Gasoline", 285, true},
	{"Transportation", "New Vehicles", 48500, false},
	{"Healthcare", "Medical Care", 485, false},
	{"Healthcare", "Health Insurance", 525, false},
	{"Other", "Apparel", 145, false},
	{"Other", "Entertainment", 285, false},
}

type indicator struct {
	variable   string
	category   string
	baseValue  float64
	volatility float64
}

var indicators = []indicator{
	{"Mortgage Rate Level", "Critical", 5.5, 0.3},
	{"Price-to-Income Ratio", "Critical", 4.2, 0.1},
	{"Affordability Index", "Major", 115, 3},
	{"Mortgage Delinquency", "Major", 2.5, 0.2},
	{"Inventory Months Supply", "Major", 4.5, 0.4},
	{"Credit Standards", "Minor", 0, 0.5},
	{"New Home Sales", "Minor", 650, 50},
	{"Construction Employment", "Minor", 100, 2},
}

type region struct {
	name       string
	basePrice  float64
	baseIncome float64
}

var regions = []region{
	{"Northeast", 485000, 92000},
	{"Midwest", 285000, 72000},
	{"South", 325000, 68000},
	{"West", 585000, 85000},
}
