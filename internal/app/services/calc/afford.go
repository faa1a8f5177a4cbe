package calc

import (
	"errors"
	"math"
)

const (
	loanTermYears     = 30
	frontEndRatio     = 0.28
	regionalDownPct   = 20
	backfillDownPct   = 10
	taxesAndInsurance = 400
	affordableScore   = 120
	stretchScore      = 100
	unaffordableScore = 80
)

// ErrZeroIncome is returned by ratio calculations whose denominator is an
// income of zero.
var ErrZeroIncome = errors.New("income must be non-zero")

// MonthlyPayment is the fixed-rate amortized payment on principal.
func MonthlyPayment(principal, annualRatePct float64, years int) float64 {
	n := float64(years * 12)
	if n <= 0 {
		return 0
	}
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / n
	}
	growth := math.Pow(1+r, n)
	return principal * (r * growth) / (growth - 1)
}

// AffordabilityStatus buckets a regional affordability score.
type AffordabilityStatus string

const (
	StatusAffordable           AffordabilityStatus = "Affordable"
	StatusStretch              AffordabilityStatus = "Stretch"
	StatusUnaffordable         AffordabilityStatus = "Unaffordable"
	StatusSeverelyUnaffordable AffordabilityStatus = "Severely Unaffordable"
)

// Regional is the affordability of a median-priced home for a median
// household, assuming 20% down on a 30-year loan.
type Regional struct {
	QualifyingIncome   float64             `json:"qualifyingIncome"`
	MonthlyPayment     float64             `json:"monthlyPayment"`
	AffordabilityScore float64             `json:"affordabilityScore"`
	Status             AffordabilityStatus `json:"status"`
}

// RegionalAffordability scores income against the income needed to carry the
// median home at ratePct.
func RegionalAffordability(price, income, ratePct float64) Regional {
	loan := price * (1 - regionalDownPct/100.0)
	payment := MonthlyPayment(loan, ratePct, loanTermYears)
	qualifying := payment / frontEndRatio * 12

	var score float64
	if qualifying > 0 {
		score = math.Round(income / qualifying * 100)
	}

	status := StatusSeverelyUnaffordable
	switch {
	case score >= affordableScore:
		status = StatusAffordable
	case score >= stretchScore:
		status = StatusStretch
	case score >= unaffordableScore:
		status = StatusUnaffordable
	}

	return Regional{
		QualifyingIncome:   math.Round(qualifying),
		MonthlyPayment:     math.Round(payment),
		AffordabilityScore: score,
		Status:             status,
	}
}

// Backfill is the affordability computation used for historical series. It
// adds a flat monthly tax and insurance cost and leaves the score unrounded.
type Backfill struct {
	MonthlyPayment     float64
	QualifyingIncome   float64
	AffordabilityScore float64
}

// AffordabilityMetrics computes Backfill figures. A downPct <= 0 uses 10%.
func AffordabilityMetrics(price, ratePct, income, downPct float64) Backfill {
	if downPct <= 0 {
		downPct = backfillDownPct
	}
	loan := price * (1 - downPct/100)
	payment := MonthlyPayment(loan, ratePct, loanTermYears) + taxesAndInsurance
	qualifying := payment / frontEndRatio * 12

	var score float64
	if qualifying > 0 {
		score = income / qualifying * 100
	}
	return Backfill{MonthlyPayment: payment, QualifyingIncome: qualifying, AffordabilityScore: score}
}

// Ratio is a rounded ratio with its band.
type Ratio struct {
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

// PriceToIncome is the median price expressed in years of income.
func PriceToIncome(price, income float64) (Ratio, error) {
	if income == 0 {
		return Ratio{}, ErrZeroIncome
	}
	ratio := price / income
	status := "Severe"
	switch {
	case ratio <= 3:
		status = "Affordable"
	case ratio <= 4:
		status = "Moderate"
	case ratio <= 5:
		status = "High"
	}
	return Ratio{Value: Round(ratio, 1), Status: status}, nil
}

// PaymentToIncome is the mortgage payment as a percentage of monthly income.
func PaymentToIncome(payment, monthlyIncome float64) (Ratio, error) {
	if monthlyIncome == 0 {
		return Ratio{}, ErrZeroIncome
	}
	pct := payment / monthlyIncome * 100
	status := "Severe Burden"
	switch {
	case pct <= 20:
		status = "Affordable"
	case pct <= 30:
		status = "Manageable"
	case pct <= 40:
		status = "Burden"
	}
	return Ratio{Value: Round(pct, 1), Status: status}, nil
}
