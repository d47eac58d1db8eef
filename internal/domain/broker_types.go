package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker-agnostic account types.
// The Kiwoom adapter translates its wire format into these.

// sessionExpirySkew treats tokens as expired slightly early so a request
// started just before expiry does not fail mid-flight.
const sessionExpirySkew = 30 * time.Second

// Session is an issued broker access token. It is passed into and returned
// from reconciliation rather than held as package state.
type Session struct {
	Token     string    // Bearer token
	TokenType string    // Usually "bearer"
	ExpiresAt time.Time // Absolute expiry
}

// Valid reports whether the session can still be used at now
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return now.Add(sessionExpirySkew).Before(s.ExpiresAt)
}

// BrokerPosition is a holding as reported by the broker
type BrokerPosition struct {
	Symbol       string          // Six-digit code, market prefix stripped
	Name         string          // Display name
	Quantity     int64           // Shares held
	AvgPrice     decimal.Decimal // Purchase price per share
	CurrentPrice decimal.Decimal // Last price
	EvaluationPL decimal.Decimal // Broker-computed P&L
	ProfitRate   decimal.Decimal // Broker-computed return, percent
}

// BrokerStats are the broker's own evaluation totals
type BrokerStats struct {
	TotalPurchase     decimal.Decimal `json:"totalPurchase"`
	TotalEvaluation   decimal.Decimal `json:"totalEvaluation"`
	TotalEvaluationPL decimal.Decimal `json:"totalEvaluationPL"`
	TotalProfitRate   decimal.Decimal `json:"totalProfitRate"`
	Deposit           decimal.Decimal `json:"deposit"`
}

// BrokerSnapshot is one live account read. Never persisted as-is.
type BrokerSnapshot struct {
	Cash       decimal.Decimal
	TotalAsset *decimal.Decimal // nil when the broker did not report it
	Positions  []BrokerPosition
	Stats      BrokerStats
}
