// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInitialBalance is the bootstrap balance for accounts seen for the first time (KRW)
var DefaultInitialBalance = decimal.NewFromInt(50_000_000)

// EntrySignal identifies which breakout system generated an entry
type EntrySignal string

const (
	// EntrySignal20Day is System 1, the 20-day breakout
	EntrySignal20Day EntrySignal = "20-day-breakout"
	// EntrySignal55Day is System 2, the 55-day failsafe breakout
	EntrySignal55Day EntrySignal = "55-day-breakout"
)

// Valid reports whether s is a known entry signal
func (s EntrySignal) Valid() bool {
	return s == EntrySignal20Day || s == EntrySignal55Day
}

// RiskSettings holds the account's risk policy, expressed as fractions of equity
type RiskSettings struct {
	MaxRiskPerTrade decimal.Decimal `json:"maxRiskPerTrade"`
	MaxTotalRisk    decimal.Decimal `json:"maxTotalRisk"`
	MinCashReserve  decimal.Decimal `json:"minCashReserve"`
}

// DefaultRiskSettings returns the classic turtle policy: 2% per trade,
// 20% total heat, 10% of equity kept in cash.
func DefaultRiskSettings() RiskSettings {
	return RiskSettings{
		MaxRiskPerTrade: decimal.RequireFromString("0.02"),
		MaxTotalRisk:    decimal.RequireFromString("0.20"),
		MinCashReserve:  decimal.RequireFromString("0.10"),
	}
}

// TradeStats are the aggregate counters maintained per closed trade.
// TotalLoss and LargestLoss are stored as non-positive values.
type TradeStats struct {
	TotalTrades   int             `json:"totalTrades"`
	WinningTrades int             `json:"winningTrades"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	TotalLoss     decimal.Decimal `json:"totalLoss"`
	LargestWin    decimal.Decimal `json:"largestWin"`
	LargestLoss   decimal.Decimal `json:"largestLoss"`
}

// Position is one open holding, unique by symbol within a portfolio
type Position struct {
	EntryDate     time.Time       `json:"entryDate"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	EntrySignal   EntrySignal     `json:"entrySignal"`
	Quantity      int64           `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	StopLossPrice decimal.Decimal `json:"stopLossPrice"`
	ATR           decimal.Decimal `json:"atr"`          // N at entry, frozen
	RiskAmount    decimal.Decimal `json:"riskAmount"`   // frozen unless resized
	UnrealizedPL  decimal.Decimal `json:"unrealizedPL"` // derived
}

// MarketValue returns CurrentPrice * Quantity
func (p Position) MarketValue() decimal.Decimal {
	return p.CurrentPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// Portfolio is the persisted document for one account
type Portfolio struct {
	AccountID      string          `json:"accountId"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CurrentCash    decimal.Decimal `json:"currentCash"`
	TotalEquity    decimal.Decimal `json:"totalEquity"`
	Positions      []Position      `json:"positions"`
	RiskSettings   RiskSettings    `json:"riskSettings"`
	Stats          TradeStats      `json:"stats"`
}

// NewPortfolio builds the first-use record for an account: all cash, no positions
func NewPortfolio(accountID string, initialBalance decimal.Decimal, settings RiskSettings) *Portfolio {
	return &Portfolio{
		AccountID:      accountID,
		InitialBalance: initialBalance,
		CurrentCash:    initialBalance,
		TotalEquity:    initialBalance,
		Positions:      []Position{},
		RiskSettings:   settings,
	}
}

// FindPosition returns the index of symbol in Positions, or -1
func (p *Portfolio) FindPosition(symbol string) int {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to mutate independently
func (p *Portfolio) Clone() *Portfolio {
	if p == nil {
		return nil
	}
	c := *p
	c.Positions = make([]Position, len(p.Positions))
	copy(c.Positions, p.Positions)
	return &c
}

// ExitReason classifies why a position was closed
type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonExitSignal ExitReason = "exit_signal"
	ExitReasonManual     ExitReason = "manual"
)

// Valid reports whether r is a known exit reason
func (r ExitReason) Valid() bool {
	switch r {
	case ExitReasonStopLoss, ExitReasonExitSignal, ExitReasonManual:
		return true
	}
	return false
}

// ClosedTrade is one journal entry written when a position (or part of it) is exited
type ClosedTrade struct {
	ClosedAt    time.Time       `json:"closedAt"`
	EntryDate   time.Time       `json:"entryDate"`
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	EntrySignal EntrySignal     `json:"entrySignal"`
	Reason      ExitReason      `json:"reason"`
	Quantity    int64           `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entryPrice"`
	ExitPrice   decimal.Decimal `json:"exitPrice"`
	ProfitLoss  decimal.Decimal `json:"profitLoss"`
}

// Tier names the source a reconciled read was served from
type Tier string

const (
	TierLive        Tier = "live"        // broker snapshot merged over the ledger
	TierPersisted   Tier = "persisted"   // stored ledger only
	TierPlaceholder Tier = "placeholder" // neither broker nor store reachable; never saved
)
