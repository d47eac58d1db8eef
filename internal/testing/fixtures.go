package testing

import (
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/shopspring/decimal"
)

// FixtureEntryDate is the entry timestamp used by position fixtures
var FixtureEntryDate = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// NewSamsungPosition returns 60 shares of 005930 bought at 68,500, now 71,000
func NewSamsungPosition() domain.Position {
	return domain.Position{
		Symbol:        "005930",
		Name:          "Samsung Electronics",
		Quantity:      60,
		AvgPrice:      decimal.NewFromInt(68500),
		CurrentPrice:  decimal.NewFromInt(71000),
		StopLossPrice: decimal.NewFromInt(65000),
		EntryDate:     FixtureEntryDate,
		EntrySignal:   domain.EntrySignal20Day,
		ATR:           decimal.NewFromInt(1750),
		RiskAmount:    decimal.NewFromInt(210000),
	}
}

// NewHynixPosition returns 10 shares of 000660 bought at 180,000, now 176,000
func NewHynixPosition() domain.Position {
	return domain.Position{
		Symbol:        "000660",
		Name:          "SK hynix",
		Quantity:      10,
		AvgPrice:      decimal.NewFromInt(180000),
		CurrentPrice:  decimal.NewFromInt(176000),
		StopLossPrice: decimal.NewFromInt(170000),
		EntryDate:     FixtureEntryDate.AddDate(0, 0, 3),
		EntrySignal:   domain.EntrySignal55Day,
		ATR:           decimal.NewFromInt(5000),
		RiskAmount:    decimal.NewFromInt(100000),
	}
}

// NewPortfolioFixture returns an account holding both fixture positions
func NewPortfolioFixture(accountID string) *domain.Portfolio {
	p := domain.NewPortfolio(accountID, decimal.NewFromInt(10_000_000), domain.DefaultRiskSettings())
	p.CurrentCash = decimal.NewFromInt(4_130_000)
	p.Positions = []domain.Position{NewSamsungPosition(), NewHynixPosition()}
	// 4,130,000 + 60*71,000 + 10*176,000
	p.TotalEquity = decimal.NewFromInt(10_150_000)
	return p
}

// NewBrokerSnapshotFixture matches the live account used in reconciliation tests
func NewBrokerSnapshotFixture() *domain.BrokerSnapshot {
	total := decimal.NewFromInt(12_750_000)
	return &domain.BrokerSnapshot{
		Cash:       decimal.NewFromInt(3_500_000),
		TotalAsset: &total,
		Positions: []domain.BrokerPosition{
			{
				Symbol:       "005930",
				Name:         "삼성전자",
				Quantity:     100,
				AvgPrice:     decimal.NewFromInt(68500),
				CurrentPrice: decimal.NewFromInt(72000),
				EvaluationPL: decimal.NewFromInt(350000),
				ProfitRate:   decimal.RequireFromString("5.11"),
			},
			{
				Symbol:       "035720",
				Name:         "카카오",
				Quantity:     50,
				AvgPrice:     decimal.NewFromInt(45000),
				CurrentPrice: decimal.NewFromInt(41000),
				EvaluationPL: decimal.NewFromInt(-200000),
				ProfitRate:   decimal.RequireFromString("-8.89"),
			},
		},
		Stats: domain.BrokerStats{
			TotalPurchase:     decimal.NewFromInt(9_100_000),
			TotalEvaluation:   decimal.NewFromInt(9_250_000),
			TotalEvaluationPL: decimal.NewFromInt(150_000),
			TotalProfitRate:   decimal.RequireFromString("1.65"),
		},
	}
}

// NewSessionFixture returns a session valid for an hour from now
func NewSessionFixture() *domain.Session {
	return &domain.Session{
		Token:     "fixture-token",
		TokenType: "bearer",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
