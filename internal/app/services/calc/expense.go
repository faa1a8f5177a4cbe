package calc

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/expense"
)

// Trend describes the movement of a builder material price.
type Trend struct {
	PercentChange    float64 `json:"percentChange"`
	AnnualizedChange float64 `json:"annualizedChange"`
	Status           string  `json:"status"`
}

// BuilderCostTrend annualizes the change from start to current over months.
func BuilderCostTrend(current, start float64, months int) (Trend, error) {
	if start == 0 {
		return Trend{}, errors.New("start price must be non-zero")
	}
	if months <= 0 {
		return Trend{}, errors.New("months must be positive")
	}
	pct := (current - start) / start * 100
	annual := pct / float64(months) * 12

	status := "MAJOR Rise"
	switch {
	case annual <= -10:
		status = "MAJOR Drop"
	case annual <= -5:
		status = "Drop"
	case annual <= 5:
		status = "Stable"
	case annual <= 10:
		status = "Rise"
	}
	return Trend{PercentChange: Round(pct, 1), AnnualizedChange: Round(annual, 1), Status: status}, nil
}

var categoryWeights = map[string]float64{
	"Housing":        0.35,
	"Utilities":      0.08,
	"Food":           0.12,
	"Transportation": 0.15,
	"Healthcare":     0.08,
	"Other":          0.22,
}

const defaultCategoryWeight = 0.10

// CategoryImpact is the monthly cost increase attributed to one expense.
type CategoryImpact struct {
	Category string  `json:"category"`
	Impact   float64 `json:"impact"`
}

// Impact estimates how household price changes weigh on an income.
type Impact struct {
	TotalMonthlyImpact float64          `json:"totalMonthlyImpact"`
	PercentOfIncome    float64          `json:"percentOfIncome"`
	Status             string           `json:"status"`
	BiggestIncreases   []CategoryImpact `json:"biggestIncreases"`
}

// HouseholdExpenseImpact weights each expense's percent change by a fixed
// share of income per category.
func HouseholdExpenseImpact(expenses []expense.HouseholdExpense, income float64) (Impact, error) {
	if income == 0 {
		return Impact{}, ErrZeroIncome
	}
	var total float64
	impacts := make([]CategoryImpact, 0, len(expenses))
	for _, e := range expenses {
		w, ok := categoryWeights[e.Category]
		if !ok {
			w = defaultCategoryWeight
		}
		impact := income * w * e.PercentChange / 100
		total += impact
		impacts = append(impacts, CategoryImpact{Category: e.Category, Impact: impact})
	}

	pct := total / (income / 12) * 100
	status := "Crisis"
	switch {
	case pct <= 2:
		status = "Sustainable"
	case pct <= 5:
		status = "Manageable"
	case pct <= 10:
		status = "Strained"
	}

	sort.SliceStable(impacts, func(i, j int) bool { return impacts[i].Impact > impacts[j].Impact })
	if len(impacts) > 3 {
		impacts = impacts[:3]
	}

	return Impact{
		TotalMonthlyImpact: Round(total, 0),
		PercentOfIncome:    Round(pct, 1),
		Status:             status,
		BiggestIncreases:   impacts,
	}, nil
}

// EssentialCategory carries extra weight in ExpenseIndex.
const EssentialCategory = "Essential"

// ExpenseIndex is the weighted mean of current/start price ratios times 100.
// Items without a start price are skipped; ok is false when nothing remains.
func ExpenseIndex(items []expense.HouseholdExpense) (value float64, ok bool) {
	ratios := make([]float64, 0, len(items))
	weights := make([]float64, 0, len(items))
	for _, item := range items {
		if item.StartPrice == 0 {
			continue
		}
		w := 1.0
		if item.Category == EssentialCategory {
			w = 1.5
		}
		ratios = append(ratios, item.CurrentPrice/item.StartPrice)
		weights = append(weights, w)
	}
	if len(ratios) == 0 {
		return 0, false
	}
	return stat.Mean(ratios, weights) * 100, true
}
