// Package risk derives P&L, exposure and sizing figures from a portfolio ledger.
// Everything here is pure: inputs are never mutated.
package risk

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Metrics are the derived figures for one portfolio snapshot
type Metrics struct {
	Positions           []domain.Position // copies with UnrealizedPL filled in
	PositionsValue      decimal.Decimal   // Σ currentPrice × quantity
	PortfolioValue      decimal.Decimal   // cash + PositionsValue
	TotalReturn         decimal.Decimal   // percent of initial balance
	CurrentRiskExposure decimal.Decimal   // Σ riskAmount
	UnrealizedPL        decimal.Decimal   // Σ position unrealized P&L
}

// Calculate derives Metrics from p. RiskAmount and ATR are carried through unchanged.
func Calculate(p *domain.Portfolio) Metrics {
	m := Metrics{
		Positions:           make([]domain.Position, len(p.Positions)),
		PositionsValue:      decimal.Zero,
		CurrentRiskExposure: decimal.Zero,
		UnrealizedPL:        decimal.Zero,
	}

	for i, pos := range p.Positions {
		pos.UnrealizedPL = UnrealizedPL(pos)
		m.Positions[i] = pos

		m.PositionsValue = m.PositionsValue.Add(pos.MarketValue())
		m.CurrentRiskExposure = m.CurrentRiskExposure.Add(pos.RiskAmount)
		m.UnrealizedPL = m.UnrealizedPL.Add(pos.UnrealizedPL)
	}

	m.PortfolioValue = p.CurrentCash.Add(m.PositionsValue)
	m.TotalReturn = TotalReturn(m.PortfolioValue, p.InitialBalance)
	return m
}

// UnrealizedPL returns (currentPrice - avgPrice) × quantity
func UnrealizedPL(pos domain.Position) decimal.Decimal {
	return pos.CurrentPrice.Sub(pos.AvgPrice).Mul(decimal.NewFromInt(pos.Quantity))
}

// TotalReturn returns the percentage gain of value over initial.
// A zero initial balance yields 0.
func TotalReturn(value, initial decimal.Decimal) decimal.Decimal {
	if initial.IsZero() {
		return decimal.Zero
	}
	return value.Sub(initial).Div(initial).Mul(hundred)
}

// RiskAmount is the loss taken if the stop is hit: (avgPrice - stopLoss) × quantity.
// A stop at or above the average cost carries no risk.
func RiskAmount(avgPrice, stopLoss decimal.Decimal, quantity int64) decimal.Decimal {
	perShare := avgPrice.Sub(stopLoss)
	if !perShare.IsPositive() || quantity <= 0 {
		return decimal.Zero
	}
	return perShare.Mul(decimal.NewFromInt(quantity))
}
