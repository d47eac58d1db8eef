package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PositionUpdate is the set of fields an upsert may carry.
// Nil fields are left untouched on an existing position.
type PositionUpdate struct {
	Name          *string          `json:"name,omitempty"`
	Quantity      *int64           `json:"quantity,omitempty"`
	AvgPrice      *decimal.Decimal `json:"avgPrice,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice,omitempty"`
	StopLossPrice *decimal.Decimal `json:"stopLossPrice,omitempty"`
	EntryDate     *time.Time       `json:"entryDate,omitempty"`
	EntrySignal   *EntrySignal     `json:"entrySignal,omitempty"`
	ATR           *decimal.Decimal `json:"atr,omitempty"`
	RiskAmount    *decimal.Decimal `json:"riskAmount,omitempty"`
}

// ValidateFields checks every field that is present.
// Quantity is not checked here; a non-positive quantity means removal.
func (u PositionUpdate) ValidateFields() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if err := requirePositive("avgPrice", u.AvgPrice); err != nil {
		return err
	}
	if err := requirePositive("currentPrice", u.CurrentPrice); err != nil {
		return err
	}
	if err := requirePositive("stopLossPrice", u.StopLossPrice); err != nil {
		return err
	}
	if err := requirePositive("atr", u.ATR); err != nil {
		return err
	}
	if u.RiskAmount != nil && u.RiskAmount.IsNegative() {
		return NewValidationError("riskAmount", "must not be negative")
	}
	if u.EntrySignal != nil && !u.EntrySignal.Valid() {
		return NewValidationError("entrySignal", "must be 20-day-breakout or 55-day-breakout")
	}
	if u.EntryDate != nil && u.EntryDate.IsZero() {
		return NewValidationError("entryDate", "must be a valid timestamp")
	}
	return nil
}

// ValidateForInsert checks the fields required to open a new position
func (u PositionUpdate) ValidateForInsert() error {
	switch {
	case u.Name == nil:
		return NewValidationError("name", "is required")
	case u.Quantity == nil:
		return NewValidationError("quantity", "is required")
	case *u.Quantity <= 0:
		return NewValidationError("quantity", "must be positive for a new position")
	case u.AvgPrice == nil:
		return NewValidationError("avgPrice", "is required")
	case u.StopLossPrice == nil:
		return NewValidationError("stopLossPrice", "is required")
	case u.ATR == nil:
		return NewValidationError("atr", "is required")
	case u.RiskAmount == nil:
		return NewValidationError("riskAmount", "is required")
	}
	return u.ValidateFields()
}

func requirePositive(field string, v *decimal.Decimal) error {
	if v != nil && !v.IsPositive() {
		return NewValidationError(field, "must be positive")
	}
	return nil
}
