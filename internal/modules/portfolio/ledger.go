package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/shopspring/decimal"
)

// avgPricePlaces is the precision kept for weighted average costs
const avgPricePlaces = 4

// UpsertOutcome says what an upsert did to the ledger
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
	OutcomeRemoved UpsertOutcome = "removed"
)

// ApplyUpsert overlays upd onto the position for symbol, inserting it when absent.
// A non-positive quantity on an existing position removes it. EntryDate and
// ATR are fixed at entry: supplying a different value is a ValidationError.
func ApplyUpsert(p *domain.Portfolio, symbol string, upd domain.PositionUpdate, now time.Time) (domain.Position, UpsertOutcome, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return domain.Position{}, "", domain.NewValidationError("symbol", "is required")
	}
	if err := upd.ValidateFields(); err != nil {
		return domain.Position{}, "", err
	}

	idx := p.FindPosition(symbol)
	if idx < 0 {
		pos, err := newPosition(symbol, upd, now)
		if err != nil {
			return domain.Position{}, "", err
		}
		p.Positions = append(p.Positions, pos)
		return pos, OutcomeCreated, nil
	}

	if upd.Quantity != nil && *upd.Quantity <= 0 {
		removed := p.Positions[idx]
		p.Positions = append(p.Positions[:idx], p.Positions[idx+1:]...)
		return removed, OutcomeRemoved, nil
	}

	pos := p.Positions[idx]
	if upd.EntryDate != nil && !upd.EntryDate.Equal(pos.EntryDate) {
		return domain.Position{}, "", domain.NewValidationError("entryDate", "is fixed at entry")
	}
	if upd.ATR != nil && !upd.ATR.Equal(pos.ATR) {
		return domain.Position{}, "", domain.NewValidationError("atr", "is frozen at entry")
	}

	resized := false
	if upd.Quantity != nil && *upd.Quantity != pos.Quantity {
		pos.Quantity = *upd.Quantity
		resized = true
	}
	if upd.AvgPrice != nil && !upd.AvgPrice.Equal(pos.AvgPrice) {
		pos.AvgPrice = *upd.AvgPrice
		resized = true
	}
	if upd.StopLossPrice != nil && !upd.StopLossPrice.Equal(pos.StopLossPrice) {
		pos.StopLossPrice = *upd.StopLossPrice
		resized = true
	}
	if upd.Name != nil {
		pos.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.CurrentPrice != nil {
		pos.CurrentPrice = *upd.CurrentPrice
	}
	if upd.EntrySignal != nil {
		pos.EntrySignal = *upd.EntrySignal
	}

	switch {
	case upd.RiskAmount != nil:
		pos.RiskAmount = *upd.RiskAmount
	case resized:
		pos.RiskAmount = risk.RiskAmount(pos.AvgPrice, pos.StopLossPrice, pos.Quantity)
	}
	pos.UnrealizedPL = risk.UnrealizedPL(pos)

	p.Positions[idx] = pos
	return pos, OutcomeUpdated, nil
}

func newPosition(symbol string, upd domain.PositionUpdate, now time.Time) (domain.Position, error) {
	if err := upd.ValidateForInsert(); err != nil {
		return domain.Position{}, err
	}

	pos := domain.Position{
		Symbol:        symbol,
		Name:          strings.TrimSpace(*upd.Name),
		Quantity:      *upd.Quantity,
		AvgPrice:      *upd.AvgPrice,
		CurrentPrice:  *upd.AvgPrice,
		StopLossPrice: *upd.StopLossPrice,
		EntryDate:     now.UTC(),
		EntrySignal:   domain.EntrySignal20Day,
		ATR:           *upd.ATR,
		RiskAmount:    *upd.RiskAmount,
	}
	if upd.CurrentPrice != nil {
		pos.CurrentPrice = *upd.CurrentPrice
	}
	if upd.EntryDate != nil {
		pos.EntryDate = upd.EntryDate.UTC()
	}
	if upd.EntrySignal != nil {
		pos.EntrySignal = *upd.EntrySignal
	}
	pos.UnrealizedPL = risk.UnrealizedPL(pos)

	return pos, nil
}

// RemovePosition deletes symbol from p. Returns false if it was not held.
func RemovePosition(p *domain.Portfolio, symbol string) bool {
	idx := p.FindPosition(strings.TrimSpace(symbol))
	if idx < 0 {
		return false
	}
	p.Positions = append(p.Positions[:idx], p.Positions[idx+1:]...)
	return true
}

// Fill is an add to an existing position (pyramiding or a partial fill)
type Fill struct {
	Quantity      int64            `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	StopLossPrice *decimal.Decimal `json:"stopLossPrice,omitempty"` // turtle adds usually raise the stop
}

// AddFill buys fill.Quantity more of symbol at fill.Price. The average cost
// becomes the volume-weighted mean, the cost is debited from cash, and the
// risk amount is recomputed for the resized position.
func AddFill(p *domain.Portfolio, symbol string, fill Fill) (domain.Position, error) {
	if fill.Quantity <= 0 {
		return domain.Position{}, domain.NewValidationError("quantity", "must be positive")
	}
	if !fill.Price.IsPositive() {
		return domain.Position{}, domain.NewValidationError("price", "must be positive")
	}
	if fill.StopLossPrice != nil && !fill.StopLossPrice.IsPositive() {
		return domain.Position{}, domain.NewValidationError("stopLossPrice", "must be positive")
	}

	idx := p.FindPosition(strings.TrimSpace(symbol))
	if idx < 0 {
		return domain.Position{}, fmt.Errorf("position %s: %w", symbol, domain.ErrNotFound)
	}

	addQty := decimal.NewFromInt(fill.Quantity)
	cost := fill.Price.Mul(addQty)
	if cost.GreaterThan(p.CurrentCash) {
		return domain.Position{}, domain.NewValidationError("quantity", "fill cost exceeds available cash")
	}

	pos := p.Positions[idx]
	heldQty := decimal.NewFromInt(pos.Quantity)
	total := pos.Quantity + fill.Quantity

	pos.AvgPrice = pos.AvgPrice.Mul(heldQty).Add(cost).
		Div(decimal.NewFromInt(total)).
		Round(avgPricePlaces)
	pos.Quantity = total
	pos.CurrentPrice = fill.Price
	if fill.StopLossPrice != nil {
		pos.StopLossPrice = *fill.StopLossPrice
	}
	pos.RiskAmount = risk.RiskAmount(pos.AvgPrice, pos.StopLossPrice, pos.Quantity)
	pos.UnrealizedPL = risk.UnrealizedPL(pos)

	p.Positions[idx] = pos
	p.CurrentCash = p.CurrentCash.Sub(cost)
	return pos, nil
}

// RefreshEquity recomputes the cached TotalEquity from cash and positions
func RefreshEquity(p *domain.Portfolio) {
	p.TotalEquity = risk.Calculate(p).PortfolioValue
}
