// Package performance maintains trade statistics from closed-trade events.
package performance

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Record applies one closed trade's profit/loss to stats and returns the result.
// Call it exactly once per closed-trade event. A flat trade counts toward
// TotalTrades only.
func Record(stats domain.TradeStats, profitLoss decimal.Decimal) domain.TradeStats {
	stats.TotalTrades++

	switch {
	case profitLoss.IsPositive():
		stats.WinningTrades++
		stats.TotalProfit = stats.TotalProfit.Add(profitLoss)
		if profitLoss.GreaterThan(stats.LargestWin) {
			stats.LargestWin = profitLoss
		}
	case profitLoss.IsNegative():
		stats.TotalLoss = stats.TotalLoss.Add(profitLoss)
		if profitLoss.LessThan(stats.LargestLoss) {
			stats.LargestLoss = profitLoss
		}
	}

	return stats
}

// WinRate returns winning / total × 100, or 0 with no trades
func WinRate(stats domain.TradeStats) decimal.Decimal {
	if stats.TotalTrades == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(stats.WinningTrades)).
		Div(decimal.NewFromInt(int64(stats.TotalTrades))).
		Mul(hundred)
}

// ProfitFactor returns totalProfit / |totalLoss|, or 0 when there is no loss
func ProfitFactor(stats domain.TradeStats) decimal.Decimal {
	if stats.TotalLoss.IsZero() {
		return decimal.Zero
	}
	return stats.TotalProfit.Div(stats.TotalLoss.Abs())
}

// Report is TradeStats plus the derived ratios, as served to clients
type Report struct {
	domain.TradeStats
	WinRate      decimal.Decimal `json:"winRate"`
	ProfitFactor decimal.Decimal `json:"profitFactor"`
}

// Describe builds a Report from stats
func Describe(stats domain.TradeStats) Report {
	return Report{
		TradeStats:   stats,
		WinRate:      WinRate(stats),
		ProfitFactor: ProfitFactor(stats),
	}
}
