package trading

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/performance"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExitRequest closes all of a position, or Quantity shares of it
type ExitRequest struct {
	Quantity  *int64            `json:"quantity,omitempty"`
	ExitPrice decimal.Decimal   `json:"exitPrice"`
	Reason    domain.ExitReason `json:"reason"`
}

// Validate checks the request fields. An empty reason is accepted as manual.
func (r ExitRequest) Validate() error {
	if !r.ExitPrice.IsPositive() {
		return domain.NewValidationError("exitPrice", "must be positive")
	}
	if r.Quantity != nil && *r.Quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	if r.Reason != "" && !r.Reason.Valid() {
		return domain.NewValidationError("reason", fmt.Sprintf("unknown exit reason %q", r.Reason))
	}
	return nil
}

// ApplyExit removes the exited shares from p, credits the proceeds and
// records the result in p.Stats. It returns the journal entry to store.
func ApplyExit(p *domain.Portfolio, symbol string, req ExitRequest, closedAt time.Time) (domain.ClosedTrade, error) {
	if err := req.Validate(); err != nil {
		return domain.ClosedTrade{}, err
	}

	symbol = strings.TrimSpace(symbol)
	idx := p.FindPosition(symbol)
	if idx < 0 {
		return domain.ClosedTrade{}, fmt.Errorf("position %s: %w", symbol, domain.ErrNotFound)
	}
	pos := p.Positions[idx]

	qty := pos.Quantity
	if req.Quantity != nil && *req.Quantity < qty {
		qty = *req.Quantity
	}
	reason := req.Reason
	if reason == "" {
		reason = domain.ExitReasonManual
	}

	shares := decimal.NewFromInt(qty)
	profitLoss := req.ExitPrice.Sub(pos.AvgPrice).Mul(shares)

	p.CurrentCash = p.CurrentCash.Add(req.ExitPrice.Mul(shares))
	if qty == pos.Quantity {
		portfolio.RemovePosition(p, symbol)
	} else {
		pos.Quantity -= qty
		pos.CurrentPrice = req.ExitPrice
		pos.RiskAmount = risk.RiskAmount(pos.AvgPrice, pos.StopLossPrice, pos.Quantity)
		pos.UnrealizedPL = risk.UnrealizedPL(pos)
		p.Positions[idx] = pos
	}
	p.Stats = performance.Record(p.Stats, profitLoss)
	portfolio.RefreshEquity(p)

	return domain.ClosedTrade{
		ID:          uuid.NewString(),
		AccountID:   p.AccountID,
		Symbol:      pos.Symbol,
		Name:        pos.Name,
		EntrySignal: pos.EntrySignal,
		Reason:      reason,
		Quantity:    qty,
		EntryPrice:  pos.AvgPrice,
		ExitPrice:   req.ExitPrice,
		ProfitLoss:  profitLoss,
		EntryDate:   pos.EntryDate,
		ClosedAt:    closedAt,
	}, nil
}
