package portfolio

import (
	"testing"
	"time"

	"github.com/aristath/turtle/internal/domain"
	testutil "github.com/aristath/turtle/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func samsungInsert() domain.PositionUpdate {
	return domain.PositionUpdate{
		Name:          ptr("Samsung Electronics"),
		Quantity:      ptr(int64(60)),
		AvgPrice:      ptr(dec(68500)),
		CurrentPrice:  ptr(dec(71000)),
		StopLossPrice: ptr(dec(65000)),
		ATR:           ptr(dec(1750)),
		RiskAmount:    ptr(dec(210000)),
	}
}

func emptyPortfolio() *domain.Portfolio {
	return domain.NewPortfolio("ACC-1", dec(50_000_000), domain.DefaultRiskSettings())
}

func TestApplyUpsert_InsertComputesUnrealizedPL(t *testing.T) {
	p := emptyPortfolio()

	pos, outcome, err := ApplyUpsert(p, "005930", samsungInsert(), ledgerNow)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, outcome)
	require.Len(t, p.Positions, 1)
	assert.Equal(t, pos, p.Positions[0])
	assert.True(t, pos.UnrealizedPL.Equal(dec(150000)))
	assert.Equal(t, ledgerNow, pos.EntryDate)
	assert.Equal(t, domain.EntrySignal20Day, pos.EntrySignal)
}

func TestApplyUpsert_InsertDefaults(t *testing.T) {
	p := emptyPortfolio()
	upd := samsungInsert()
	upd.CurrentPrice = nil

	pos, _, err := ApplyUpsert(p, "005930", upd, ledgerNow)
	require.NoError(t, err)

	assert.True(t, pos.CurrentPrice.Equal(dec(68500)), "currentPrice defaults to avgPrice")
	assert.True(t, pos.UnrealizedPL.IsZero())
}

func TestApplyUpsert_InsertHonoursExplicitEntryFields(t *testing.T) {
	p := emptyPortfolio()
	upd := samsungInsert()
	entry := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	upd.EntryDate = &entry
	upd.EntrySignal = ptr(domain.EntrySignal55Day)

	pos, _, err := ApplyUpsert(p, "005930", upd, ledgerNow)
	require.NoError(t, err)

	assert.Equal(t, entry, pos.EntryDate)
	assert.Equal(t, domain.EntrySignal55Day, pos.EntrySignal)
}

func TestApplyUpsert_InsertRequiresFields(t *testing.T) {
	p := emptyPortfolio()
	upd := samsungInsert()
	upd.ATR = nil

	_, _, err := ApplyUpsert(p, "005930", upd, ledgerNow)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "atr", ve.Field)
	assert.Empty(t, p.Positions)
}

func TestApplyUpsert_BlankSymbol(t *testing.T) {
	_, _, err := ApplyUpsert(emptyPortfolio(), "  ", samsungInsert(), ledgerNow)
	assert.True(t, domain.IsValidation(err))
}

func TestApplyUpsert_Idempotent(t *testing.T) {
	p := emptyPortfolio()
	upd := samsungInsert()

	first, _, err := ApplyUpsert(p, "005930", upd, ledgerNow)
	require.NoError(t, err)
	second, outcome, err := ApplyUpsert(p, "005930", upd, ledgerNow.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUpdated, outcome)
	require.Len(t, p.Positions, 1)
	assert.Equal(t, first, second)
}

func TestApplyUpsert_PartialOverlay(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	pos, _, err := ApplyUpsert(p, "005930", domain.PositionUpdate{
		CurrentPrice: ptr(dec(73000)),
	}, ledgerNow)
	require.NoError(t, err)

	assert.True(t, pos.CurrentPrice.Equal(dec(73000)))
	assert.True(t, pos.UnrealizedPL.Equal(dec(270000)))
	assert.True(t, pos.RiskAmount.Equal(dec(210000)), "price move does not touch frozen risk")
	assert.True(t, pos.ATR.Equal(dec(1750)))
	assert.Equal(t, "Samsung Electronics", pos.Name)
	assert.Equal(t, testutil.FixtureEntryDate, pos.EntryDate)
}

func TestApplyUpsert_ResizeRecomputesRisk(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	pos, _, err := ApplyUpsert(p, "005930", domain.PositionUpdate{
		Quantity: ptr(int64(100)),
	}, ledgerNow)
	require.NoError(t, err)

	// (68500 - 65000) * 100
	assert.True(t, pos.RiskAmount.Equal(dec(350000)))
}

func TestApplyUpsert_ExplicitRiskWinsOverResize(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	pos, _, err := ApplyUpsert(p, "005930", domain.PositionUpdate{
		Quantity:   ptr(int64(100)),
		RiskAmount: ptr(dec(123)),
	}, ledgerNow)
	require.NoError(t, err)

	assert.True(t, pos.RiskAmount.Equal(dec(123)))
}

func TestApplyUpsert_FrozenFields(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	_, _, err := ApplyUpsert(p, "005930", domain.PositionUpdate{ATR: ptr(dec(2000))}, ledgerNow)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "atr", ve.Field)

	other := testutil.FixtureEntryDate.AddDate(0, 0, 1)
	_, _, err = ApplyUpsert(p, "005930", domain.PositionUpdate{EntryDate: &other}, ledgerNow)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "entryDate", ve.Field)

	same := testutil.FixtureEntryDate
	_, _, err = ApplyUpsert(p, "005930", domain.PositionUpdate{EntryDate: &same, ATR: ptr(dec(1750))}, ledgerNow)
	assert.NoError(t, err, "repeating the frozen values is allowed")
}

func TestApplyUpsert_NonPositiveQuantityRemoves(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition(), testutil.NewHynixPosition()}

	removed, outcome, err := ApplyUpsert(p, "005930", domain.PositionUpdate{Quantity: ptr(int64(0))}, ledgerNow)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Equal(t, "005930", removed.Symbol)
	require.Len(t, p.Positions, 1)
	assert.Equal(t, "000660", p.Positions[0].Symbol)
}

func TestRemovePosition(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	assert.False(t, RemovePosition(p, "035720"))
	assert.Len(t, p.Positions, 1)

	assert.True(t, RemovePosition(p, "005930"))
	assert.Empty(t, p.Positions)
}

func TestAddFill(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	pos, err := AddFill(p, "005930", Fill{
		Quantity:      40,
		Price:         dec(71000),
		StopLossPrice: ptr(dec(67500)),
	})
	require.NoError(t, err)

	// (68500*60 + 71000*40) / 100
	assert.Equal(t, int64(100), pos.Quantity)
	assert.True(t, pos.AvgPrice.Equal(dec(69500)))
	assert.True(t, pos.StopLossPrice.Equal(dec(67500)))
	assert.True(t, pos.RiskAmount.Equal(dec(200000)))
	assert.True(t, pos.UnrealizedPL.Equal(dec(150000)))
	assert.True(t, p.CurrentCash.Equal(dec(50_000_000-2_840_000)))
}

func TestAddFill_RoundsAverage(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{{
		Symbol: "X", Quantity: 1, AvgPrice: dec(100), CurrentPrice: dec(100), StopLossPrice: dec(90),
	}}

	pos, err := AddFill(p, "X", Fill{Quantity: 2, Price: dec(101)})
	require.NoError(t, err)

	assert.Equal(t, "100.6667", pos.AvgPrice.String())
}

func TestAddFill_Errors(t *testing.T) {
	p := emptyPortfolio()
	p.Positions = []domain.Position{testutil.NewSamsungPosition()}

	_, err := AddFill(p, "035720", Fill{Quantity: 1, Price: dec(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = AddFill(p, "005930", Fill{Quantity: 0, Price: dec(1)})
	assert.True(t, domain.IsValidation(err))

	_, err = AddFill(p, "005930", Fill{Quantity: 1, Price: decimal.Zero})
	assert.True(t, domain.IsValidation(err))

	_, err = AddFill(p, "005930", Fill{Quantity: 1_000_000, Price: dec(71000)})
	assert.True(t, domain.IsValidation(err), "cannot spend more cash than held")
	assert.True(t, p.CurrentCash.Equal(dec(50_000_000)))
}

func TestRefreshEquity(t *testing.T) {
	p := testutil.NewPortfolioFixture("ACC-1")
	p.TotalEquity = decimal.Zero

	RefreshEquity(p)

	assert.True(t, p.TotalEquity.Equal(dec(10_150_000)))
}
