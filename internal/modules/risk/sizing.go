package risk

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/pkg/formulas"
	"github.com/shopspring/decimal"
)

// DefaultStopMultiple places the stop 2N below entry
var DefaultStopMultiple = decimal.NewFromInt(2)

// Binding constraints reported on an EntryPlan
const (
	ConstraintRiskPerTrade = "risk_per_trade"
	ConstraintTotalRisk    = "total_risk"
	ConstraintCashReserve  = "cash_reserve"
)

// Bar is one daily OHLC bar
type Bar struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// EntryRequest describes a breakout about to be taken.
// Either ATR or at least 21 Bars must be supplied.
type EntryRequest struct {
	Symbol       string             `json:"symbol"`
	EntryPrice   decimal.Decimal    `json:"entryPrice"`
	Signal       domain.EntrySignal `json:"entrySignal"`
	ATR          *decimal.Decimal   `json:"atr,omitempty"`
	Bars         []Bar              `json:"bars,omitempty"`
	StopMultiple *decimal.Decimal   `json:"stopMultiple,omitempty"`
}

// EntryPlan is the sized order and the values to store on the resulting position
type EntryPlan struct {
	Symbol        string             `json:"symbol"`
	EntrySignal   domain.EntrySignal `json:"entrySignal"`
	EntryPrice    decimal.Decimal    `json:"entryPrice"`
	ATR           decimal.Decimal    `json:"atr"`
	StopLossPrice decimal.Decimal    `json:"stopLossPrice"`
	Quantity      int64              `json:"quantity"`
	RiskAmount    decimal.Decimal    `json:"riskAmount"`
	PositionValue decimal.Decimal    `json:"positionValue"`
	Constraint    string             `json:"constraint"`
}

// PlanEntry sizes a new position so that hitting the stop loses at most
// MaxRiskPerTrade of equity, without exceeding the remaining total risk
// budget or dipping into the cash reserve.
func PlanEntry(req EntryRequest, p *domain.Portfolio, settings domain.RiskSettings) (*EntryPlan, error) {
	if req.Symbol == "" {
		return nil, domain.NewValidationError("symbol", "is required")
	}
	if !req.EntryPrice.IsPositive() {
		return nil, domain.NewValidationError("entryPrice", "must be positive")
	}

	signal := req.Signal
	if signal == "" {
		signal = domain.EntrySignal20Day
	}
	if !signal.Valid() {
		return nil, domain.NewValidationError("entrySignal", "must be 20-day-breakout or 55-day-breakout")
	}

	n, err := resolveATR(req)
	if err != nil {
		return nil, err
	}

	multiple := DefaultStopMultiple
	if req.StopMultiple != nil {
		if !req.StopMultiple.IsPositive() {
			return nil, domain.NewValidationError("stopMultiple", "must be positive")
		}
		multiple = *req.StopMultiple
	}

	stopDistance := n.Mul(multiple)
	stop := req.EntryPrice.Sub(stopDistance)
	if !stop.IsPositive() {
		return nil, domain.NewValidationError("atr", "stop distance exceeds entry price")
	}

	m := Calculate(p)
	limits := EvaluateLimits(p.CurrentCash, m, settings)

	budget := limits.PerTradeLimit
	constraint := ConstraintRiskPerTrade
	if limits.RemainingRisk.LessThan(budget) {
		budget = limits.RemainingRisk
		constraint = ConstraintTotalRisk
	}

	qty := budget.Div(stopDistance).Floor().IntPart()

	maxByCash := limits.DeployableCash.Div(req.EntryPrice).Floor().IntPart()
	if maxByCash < qty {
		qty = maxByCash
		constraint = ConstraintCashReserve
	}
	if qty < 0 {
		qty = 0
	}

	q := decimal.NewFromInt(qty)
	return &EntryPlan{
		Symbol:        req.Symbol,
		EntrySignal:   signal,
		EntryPrice:    req.EntryPrice,
		ATR:           n,
		StopLossPrice: stop,
		Quantity:      qty,
		RiskAmount:    stopDistance.Mul(q),
		PositionValue: req.EntryPrice.Mul(q),
		Constraint:    constraint,
	}, nil
}

func resolveATR(req EntryRequest) (decimal.Decimal, error) {
	if req.ATR != nil {
		if !req.ATR.IsPositive() {
			return decimal.Zero, domain.NewValidationError("atr", "must be positive")
		}
		return *req.ATR, nil
	}

	highs := make([]float64, len(req.Bars))
	lows := make([]float64, len(req.Bars))
	closes := make([]float64, len(req.Bars))
	for i, b := range req.Bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}

	atr := formulas.CalculateATR(highs, lows, closes, formulas.TurtleATRPeriod)
	if atr == nil {
		return decimal.Zero, domain.NewValidationError("bars", "need at least 21 daily bars or an explicit atr")
	}
	return decimal.NewFromFloat(*atr).Round(2), nil
}
