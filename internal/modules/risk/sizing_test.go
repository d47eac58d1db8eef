package risk

import (
	"testing"

	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dp(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func freshPortfolio() *domain.Portfolio {
	return domain.NewPortfolio("ACC-1", d(50_000_000), domain.DefaultRiskSettings())
}

func TestPlanEntry_RiskPerTradeBound(t *testing.T) {
	plan, err := PlanEntry(EntryRequest{
		Symbol:     "005930",
		EntryPrice: d(50_000),
		ATR:        dp(1_000),
	}, freshPortfolio(), domain.DefaultRiskSettings())
	require.NoError(t, err)

	assert.Equal(t, domain.EntrySignal20Day, plan.EntrySignal)
	assert.True(t, plan.StopLossPrice.Equal(d(48_000)))
	assert.Equal(t, int64(500), plan.Quantity)
	assert.True(t, plan.RiskAmount.Equal(d(1_000_000)))
	assert.True(t, plan.PositionValue.Equal(d(25_000_000)))
	assert.Equal(t, ConstraintRiskPerTrade, plan.Constraint)
}

func TestPlanEntry_CashReserveBound(t *testing.T) {
	plan, err := PlanEntry(EntryRequest{
		Symbol:     "000660",
		EntryPrice: d(200_000),
		ATR:        dp(100),
		Signal:     domain.EntrySignal55Day,
	}, freshPortfolio(), domain.DefaultRiskSettings())
	require.NoError(t, err)

	// 45,000,000 deployable / 200,000
	assert.Equal(t, int64(225), plan.Quantity)
	assert.Equal(t, ConstraintCashReserve, plan.Constraint)
	assert.Equal(t, domain.EntrySignal55Day, plan.EntrySignal)
}

func TestPlanEntry_TotalRiskBound(t *testing.T) {
	p := freshPortfolio()
	p.CurrentCash = d(40_000_000)
	p.Positions = []domain.Position{{
		Symbol: "035720", Quantity: 100, AvgPrice: d(100_000), CurrentPrice: d(100_000), RiskAmount: d(9_600_000),
	}}

	plan, err := PlanEntry(EntryRequest{
		Symbol:     "005930",
		EntryPrice: d(50_000),
		ATR:        dp(1_000),
	}, p, domain.DefaultRiskSettings())
	require.NoError(t, err)

	// 10,000,000 limit - 9,600,000 used = 400,000 budget / 2,000 per share
	assert.Equal(t, int64(200), plan.Quantity)
	assert.Equal(t, ConstraintTotalRisk, plan.Constraint)
}

func TestPlanEntry_CustomStopMultiple(t *testing.T) {
	plan, err := PlanEntry(EntryRequest{
		Symbol:       "005930",
		EntryPrice:   d(50_000),
		ATR:          dp(1_000),
		StopMultiple: dp(1),
	}, freshPortfolio(), domain.DefaultRiskSettings())
	require.NoError(t, err)

	assert.True(t, plan.StopLossPrice.Equal(d(49_000)))
	assert.Equal(t, int64(900), plan.Quantity, "1000 by risk, capped to 900 by cash")
}

func TestPlanEntry_ATRFromBars(t *testing.T) {
	var bars []Bar
	for i := 0; i < 30; i++ {
		bars = append(bars, Bar{High: 110, Low: 100, Close: 105})
	}

	plan, err := PlanEntry(EntryRequest{
		Symbol:     "TEST",
		EntryPrice: d(105),
		Bars:       bars,
	}, freshPortfolio(), domain.DefaultRiskSettings())
	require.NoError(t, err)

	assert.True(t, plan.ATR.Equal(d(10)))
	assert.True(t, plan.StopLossPrice.Equal(d(85)))
	assert.Equal(t, int64(50_000), plan.Quantity)
}

func TestPlanEntry_Validation(t *testing.T) {
	settings := domain.DefaultRiskSettings()

	tests := []struct {
		name  string
		req   EntryRequest
		field string
	}{
		{"missing symbol", EntryRequest{EntryPrice: d(100), ATR: dp(1)}, "symbol"},
		{"zero price", EntryRequest{Symbol: "X", ATR: dp(1)}, "entryPrice"},
		{"bad signal", EntryRequest{Symbol: "X", EntryPrice: d(100), ATR: dp(1), Signal: "weekly"}, "entrySignal"},
		{"no atr no bars", EntryRequest{Symbol: "X", EntryPrice: d(100)}, "bars"},
		{"negative atr", EntryRequest{Symbol: "X", EntryPrice: d(100), ATR: dp(-1)}, "atr"},
		{"stop below zero", EntryRequest{Symbol: "X", EntryPrice: d(1_000), ATR: dp(600)}, "atr"},
		{"zero multiple", EntryRequest{Symbol: "X", EntryPrice: d(100), ATR: dp(1), StopMultiple: dp(0)}, "stopMultiple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanEntry(tt.req, freshPortfolio(), settings)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
