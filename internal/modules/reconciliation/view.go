package reconciliation

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/performance"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/shopspring/decimal"
)

// Risk settings source reported in the view
const (
	SettingsFromAccount  = "account"
	SettingsFromFallback = "fallback"
)

// View is the reconciled read response for one account
type View struct {
	Success         bool                `json:"success"`
	Tier            domain.Tier         `json:"tier"`
	Portfolio       PortfolioView       `json:"portfolio"`
	BrokerConnected bool                `json:"brokerConnected"`
	KiwoomConnected bool                `json:"kiwoomConnected"`
	Persisted       bool                `json:"persisted"` // the served figures are in the store
	Message         string              `json:"message,omitempty"`
	BrokerStats     *domain.BrokerStats `json:"brokerStats,omitempty"`
}

// PortfolioView is a Portfolio with every derived figure filled in
type PortfolioView struct {
	AccountID           string              `json:"accountId"`
	InitialBalance      decimal.Decimal     `json:"initialBalance"`
	CurrentCash         decimal.Decimal     `json:"currentCash"`
	TotalEquity         decimal.Decimal     `json:"totalEquity"`
	PortfolioValue      decimal.Decimal     `json:"portfolioValue"`
	TotalReturn         decimal.Decimal     `json:"totalReturn"`
	CurrentRiskExposure decimal.Decimal     `json:"currentRiskExposure"`
	UnrealizedPL        decimal.Decimal     `json:"unrealizedPL"`
	Positions           []domain.Position   `json:"positions"`
	RiskSettings        domain.RiskSettings `json:"riskSettings"`
	RiskSettingsSource  string              `json:"riskSettingsSource"`
	Stats               performance.Report  `json:"stats"`
	Limits              risk.LimitStatus    `json:"limits"`
}

// buildView derives every figure from p. p itself is not modified.
func buildView(p *domain.Portfolio, settingsSource string) PortfolioView {
	m := risk.Calculate(p)
	return PortfolioView{
		AccountID:           p.AccountID,
		InitialBalance:      p.InitialBalance,
		CurrentCash:         p.CurrentCash,
		TotalEquity:         m.PortfolioValue,
		PortfolioValue:      m.PortfolioValue,
		TotalReturn:         m.TotalReturn,
		CurrentRiskExposure: m.CurrentRiskExposure,
		UnrealizedPL:        m.UnrealizedPL,
		Positions:           m.Positions,
		RiskSettings:        p.RiskSettings,
		RiskSettingsSource:  settingsSource,
		Stats:               performance.Describe(p.Stats),
		Limits:              risk.EvaluateLimits(p.CurrentCash, m, p.RiskSettings),
	}
}

// NewPlaceholderView is served when neither the broker nor the store answered.
// It is deterministic and is never written anywhere.
func NewPlaceholderView(accountID string, initialBalance decimal.Decimal, settings domain.RiskSettings) View {
	p := domain.NewPortfolio(accountID, initialBalance, settings)
	return View{
		Success:   true,
		Tier:      domain.TierPlaceholder,
		Portfolio: buildView(p, SettingsFromFallback),
		Message:   "Broker and portfolio store are unavailable; showing placeholder data",
	}
}
