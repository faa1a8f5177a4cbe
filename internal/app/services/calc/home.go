package calc

import "math"

const sellingCostRate = 0.08

// Equity is value minus the outstanding balance.
func Equity(value, balance float64) float64 {
	return value - balance
}

// SellingCosts covers agent commission and closing costs.
func SellingCosts(value float64) float64 {
	return value * sellingCostRate
}

// NetProceeds is the cash left after paying off the loan and selling costs.
func NetProceeds(value, balance float64) float64 {
	return Equity(value, balance) - SellingCosts(value)
}

// LTV is the loan-to-value percentage, 0 for a zero value.
func LTV(balance, value float64) float64 {
	if value == 0 {
		return 0
	}
	return balance / value * 100
}

// ProjectValue compounds value monthly at annualPct for months.
func ProjectValue(value, annualPct float64, months int) float64 {
	return value * math.Pow(1+annualPct/12/100, float64(months))
}
