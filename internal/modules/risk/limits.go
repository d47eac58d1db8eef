package risk

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
)

// Limit rule names reported in breaches
const (
	RuleMaxRiskPerTrade = "max_risk_per_trade"
	RuleMaxTotalRisk    = "max_total_risk"
	RuleMinCashReserve  = "min_cash_reserve"
)

// Breach is one violated limit
type Breach struct {
	Rule   string          `json:"rule"`
	Symbol string          `json:"symbol,omitempty"`
	Limit  decimal.Decimal `json:"limit"`
	Actual decimal.Decimal `json:"actual"`
}

// LimitStatus resolves the fractional risk settings against current equity
type LimitStatus struct {
	Equity         decimal.Decimal `json:"equity"`
	PerTradeLimit  decimal.Decimal `json:"perTradeLimit"`
	TotalRiskLimit decimal.Decimal `json:"totalRiskLimit"`
	MinCash        decimal.Decimal `json:"minCash"`
	RemainingRisk  decimal.Decimal `json:"remainingRisk"`  // total limit minus exposure, floored at 0
	DeployableCash decimal.Decimal `json:"deployableCash"` // cash above the reserve, floored at 0
	Breaches       []Breach        `json:"breaches"`
	WithinLimits   bool            `json:"withinLimits"`
}

// EvaluateLimits checks every position and the aggregate figures against settings
func EvaluateLimits(cash decimal.Decimal, m Metrics, settings domain.RiskSettings) LimitStatus {
	equity := m.PortfolioValue
	status := LimitStatus{
		Equity:         equity,
		PerTradeLimit:  settings.MaxRiskPerTrade.Mul(equity),
		TotalRiskLimit: settings.MaxTotalRisk.Mul(equity),
		MinCash:        settings.MinCashReserve.Mul(equity),
		Breaches:       []Breach{},
	}
	status.RemainingRisk = floorZero(status.TotalRiskLimit.Sub(m.CurrentRiskExposure))
	status.DeployableCash = floorZero(cash.Sub(status.MinCash))

	for _, pos := range m.Positions {
		if pos.RiskAmount.GreaterThan(status.PerTradeLimit) {
			status.Breaches = append(status.Breaches, Breach{
				Rule:   RuleMaxRiskPerTrade,
				Symbol: pos.Symbol,
				Limit:  status.PerTradeLimit,
				Actual: pos.RiskAmount,
			})
		}
	}

	if m.CurrentRiskExposure.GreaterThan(status.TotalRiskLimit) {
		status.Breaches = append(status.Breaches, Breach{
			Rule:   RuleMaxTotalRisk,
			Limit:  status.TotalRiskLimit,
			Actual: m.CurrentRiskExposure,
		})
	}

	if cash.LessThan(status.MinCash) {
		status.Breaches = append(status.Breaches, Breach{
			Rule:   RuleMinCashReserve,
			Limit:  status.MinCash,
			Actual: cash,
		})
	}

	status.WithinLimits = len(status.Breaches) == 0
	return status
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
