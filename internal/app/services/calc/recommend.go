package calc

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/domain/metro"
)

const (
	defaultGrowthPct   = 3
	rapidGrowthPct     = 8
	downPaymentPercent = 0.20
)

var dollars = message.NewPrinter(language.AmericanEnglish)

func money(v float64) string {
	return dollars.Sprintf("$%.0f", v)
}

// ScenarioInput is everything Recommend needs about a home and a move.
type ScenarioInput struct {
	ScenarioType    advisor.ScenarioType
	HomeValue       float64
	MortgageBalance float64
	TargetCity      string
	CurrentMetro    *metro.Trend
	TargetMetro     *metro.Trend
}

// Recommend evaluates a relocation scenario. Growth falls back to 3% a year
// when the current metro is unknown or flat, and the target price falls back
// to the home's own value.
func Recommend(in ScenarioInput) advisor.Analysis {
	home := advisor.HomeAnalysis{
		HomeValue:       in.HomeValue,
		MortgageBalance: in.MortgageBalance,
		Equity:          Equity(in.HomeValue, in.MortgageBalance),
		SellingCosts:    SellingCosts(in.HomeValue),
		NetProceeds:     NetProceeds(in.HomeValue, in.MortgageBalance),
		CurrentLTV:      LTV(in.MortgageBalance, in.HomeValue),
	}

	growth := float64(defaultGrowthPct)
	if in.CurrentMetro != nil && in.CurrentMetro.AnnualizedGrowth != 0 {
		growth = in.CurrentMetro.AnnualizedGrowth
	}
	projected := advisor.Projection{
		SixMonths:    ProjectValue(in.HomeValue, growth, 6),
		TwelveMonths: ProjectValue(in.HomeValue, growth, 12),
	}

	targetPrice := in.HomeValue
	if in.TargetMetro != nil && in.TargetMetro.CurrentValue != 0 {
		targetPrice = in.TargetMetro.CurrentValue
	}

	cash := home.NetProceeds
	down := targetPrice * downPaymentPercent
	remaining := cash - down
	fin := advisor.Financials{
		CashFromSale:              cash,
		DownPaymentNeeded:         down,
		RemainingAfterDownPayment: remaining,
		CanAffordMove:             remaining >= 0,
	}

	currentDir := direction(in.CurrentMetro)
	targetDir := direction(in.TargetMetro)

	out := advisor.Analysis{
		ScenarioType:       in.ScenarioType,
		HomeAnalysis:       home,
		CurrentMetro:       in.CurrentMetro,
		TargetMetro:        in.TargetMetro,
		ProjectedHomeValue: projected,
		TargetHomePrice:    targetPrice,
		Financials:         fin,
	}

	switch {
	case currentDir == metro.Falling && targetDir == metro.Rising:
		out.Recommendation, out.Confidence = advisor.Relocate, advisor.High
		out.Reasoning = []string{
			fmt.Sprintf("Your current market is declining (%.1f%% YoY) while %s is appreciating (%.1f%% YoY)",
				in.CurrentMetro.YoYChange, in.TargetCity, in.TargetMetro.YoYChange),
			"Consider selling now before further depreciation",
		}
	case currentDir == metro.Rising && targetDir == metro.Falling:
		out.Recommendation, out.Confidence = advisor.Hold, advisor.High
		out.Reasoning = []string{
			fmt.Sprintf("Your home is appreciating (%.1f%% YoY) while %s is declining (%.1f%% YoY)",
				in.CurrentMetro.YoYChange, in.TargetCity, in.TargetMetro.YoYChange),
			"Stay put and let your equity grow before considering a move",
		}
	case growth > rapidGrowthPct:
		out.Recommendation, out.Confidence = advisor.Wait, advisor.Medium
		out.Reasoning = []string{
			fmt.Sprintf("Your market is appreciating rapidly (%.1f%% annually)", growth),
			fmt.Sprintf("Waiting 6-12 months could add %s in equity", money(projected.TwelveMonths-in.HomeValue)),
		}
	case fin.CanAffordMove:
		out.Recommendation, out.Confidence = advisor.SellNow, advisor.Medium
		out.Reasoning = []string{
			fmt.Sprintf("You have sufficient equity for a move to %s", in.TargetCity),
			fmt.Sprintf("Net proceeds: %s vs down payment needed: %s", money(cash), money(down)),
		}
	default:
		out.Recommendation, out.Confidence = advisor.Wait, advisor.Low
		out.Reasoning = []string{
			"Insufficient equity for move to target market",
			fmt.Sprintf("Need %s for down payment, have %s", money(down), money(cash)),
		}
	}
	return out
}

func direction(t *metro.Trend) metro.Direction {
	if t == nil {
		return ""
	}
	return t.TrendDirection
}
