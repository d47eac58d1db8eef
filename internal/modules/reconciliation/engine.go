// Package reconciliation serves an account's portfolio from the best source
// available: the live broker, the persisted ledger, or a placeholder.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBrokerTimeout bounds authentication plus the balance fetch
const DefaultBrokerTimeout = 10 * time.Second

// brokerPriceTick is the precision of the broker's average purchase price.
// Ledger averages closer than one tick are the same cost basis.
var brokerPriceTick = decimal.NewFromInt(1)

// EngineConfig holds the broker credentials and first-use defaults.
// BrokerAccountID is the only account the credentials can read; every other
// account is served from the store.
type EngineConfig struct {
	AppKey                string
	SecretKey             string
	BrokerAccountID       string
	DefaultInitialBalance decimal.Decimal
	FallbackRisk          domain.RiskSettings
	Timeout               time.Duration
}

// Request is one reconciled read
type Request struct {
	AccountID string
	Session   *domain.Session // reused when still valid
	Timeout   time.Duration   // overrides EngineConfig.Timeout when > 0
}

// Result carries the view and the session to pass into the next request.
// Session is nil when the broker rejected or never issued one.
type Result struct {
	View    View
	Session *domain.Session
}

// Engine reconciles persisted portfolios against the broker
type Engine struct {
	store   domain.PortfolioStore
	gateway domain.BrokerGateway
	locks   *portfolio.AccountLocker
	cfg     EngineConfig
	log     zerolog.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(store domain.PortfolioStore, gateway domain.BrokerGateway, locks *portfolio.AccountLocker, cfg EngineConfig, log zerolog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBrokerTimeout
	}
	return &Engine{
		store:   store,
		gateway: gateway,
		locks:   locks,
		cfg:     cfg,
		log:     log.With().Str("service", "reconciliation").Logger(),
	}
}

// Reconcile builds the account's view. Broker and store outages degrade the
// tier; the only error is an invalid account ID.
func (e *Engine) Reconcile(ctx context.Context, req Request) (*Result, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.NewValidationError("accountId", "must not be empty")
	}

	timeout := e.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if !e.IsBrokerAccount(accountID) {
		return &Result{View: e.storedView(ctx, accountID, msgNotLinked), Session: req.Session}, nil
	}

	snapshot, session, err := e.fetchLive(ctx, req.Session, timeout)
	if err == nil {
		return &Result{View: e.liveView(ctx, accountID, snapshot), Session: session}, nil
	}

	e.log.Warn().Err(err).Str("account_id", accountID).Msg("Broker unavailable, serving persisted portfolio")

	return &Result{View: e.storedView(ctx, accountID, msgBrokerDown), Session: session}, nil
}

// BrokerAccountID returns the account the broker credentials belong to
func (e *Engine) BrokerAccountID() string {
	return e.cfg.BrokerAccountID
}

// IsBrokerAccount reports whether accountID can be served from the broker
func (e *Engine) IsBrokerAccount(accountID string) bool {
	return e.cfg.BrokerAccountID != "" && accountID == e.cfg.BrokerAccountID
}

// storedView serves tier 2, or tier 3 when the store is down too
func (e *Engine) storedView(ctx context.Context, accountID, message string) View {
	view, err := e.persistedView(ctx, accountID, message)
	if err != nil {
		e.log.Error().Err(err).Str("account_id", accountID).Msg("Portfolio store unavailable, serving placeholder")
		view = NewPlaceholderView(accountID, e.cfg.DefaultInitialBalance, e.cfg.FallbackRisk)
	}
	return view
}

// fetchLive authenticates if needed and reads one snapshot. A single attempt,
// bounded by timeout.
func (e *Engine) fetchLive(ctx context.Context, session *domain.Session, timeout time.Duration) (*domain.BrokerSnapshot, *domain.Session, error) {
	brokerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !e.gateway.IsAuthenticated(session) {
		if e.cfg.AppKey == "" || e.cfg.SecretKey == "" {
			return nil, nil, domain.ErrCredentialsMissing
		}
		issued, err := e.gateway.Authenticate(brokerCtx, e.cfg.AppKey, e.cfg.SecretKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: authenticate: %v", domain.ErrUpstreamUnavailable, err)
		}
		session = issued
	}

	snapshot, err := e.gateway.GetAccountBalance(brokerCtx, session)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			session = nil
		}
		return nil, session, fmt.Errorf("%w: balance: %v", domain.ErrUpstreamUnavailable, err)
	}
	if snapshot == nil || snapshot.TotalAsset == nil {
		return nil, session, fmt.Errorf("%w: snapshot without total asset", domain.ErrUpstreamUnavailable)
	}

	return snapshot, session, nil
}

// liveView merges the snapshot over the persisted ledger and writes cash and
// equity back. A failed write is logged and reported through View.Persisted.
func (e *Engine) liveView(ctx context.Context, accountID string, snap *domain.BrokerSnapshot) View {
	totalAsset := *snap.TotalAsset

	unlock := e.locks.Lock(accountID)
	defer unlock()

	stored, loadErr := e.store.Load(ctx, accountID)
	if loadErr != nil {
		stored = domain.NewPortfolio(accountID, totalAsset, e.cfg.FallbackRisk)
		if !errors.Is(loadErr, domain.ErrNotFound) {
			e.log.Error().Err(loadErr).Str("account_id", accountID).Msg("Failed to load portfolio for live merge")
		}
	}

	merged := stored.Clone()
	merged.CurrentCash = snap.Cash
	merged.Positions = mergePositions(stored.Positions, snap.Positions)

	persisted := e.writeBack(ctx, accountID, loadErr, snap.Cash, totalAsset)

	// settings are the account's once a record holds them, including one
	// bootstrapped just now
	source := SettingsFromAccount
	if loadErr != nil && !persisted {
		source = SettingsFromFallback
	}

	pv := buildView(merged, source)
	if !pv.PortfolioValue.Equal(totalAsset) {
		e.log.Warn().
			Str("account_id", accountID).
			Str("total_asset", totalAsset.String()).
			Str("computed", pv.PortfolioValue.String()).
			Msg("Broker total asset differs from cash plus positions")
	}
	// the broker's own total is authoritative
	pv.TotalEquity = totalAsset
	pv.PortfolioValue = totalAsset
	pv.TotalReturn = risk.TotalReturn(totalAsset, merged.InitialBalance)
	pv.Limits = risk.EvaluateLimits(snap.Cash, risk.Metrics{
		Positions:           pv.Positions,
		PortfolioValue:      totalAsset,
		CurrentRiskExposure: pv.CurrentRiskExposure,
	}, merged.RiskSettings)

	stats := snap.Stats
	return View{
		Success:         true,
		Tier:            domain.TierLive,
		Portfolio:       pv,
		BrokerConnected: true,
		KiwoomConnected: true,
		Persisted:       persisted,
		BrokerStats:     &stats,
	}
}

// writeBack stores the broker's cash and equity. Caller holds the account lock.
func (e *Engine) writeBack(ctx context.Context, accountID string, loadErr error, cash, equity decimal.Decimal) bool {
	var err error
	switch {
	case loadErr == nil:
		_, err = e.store.Update(ctx, accountID, func(p *domain.Portfolio) error {
			p.CurrentCash = cash
			p.TotalEquity = equity
			return nil
		})
	case errors.Is(loadErr, domain.ErrNotFound):
		p := domain.NewPortfolio(accountID, equity, e.cfg.FallbackRisk)
		p.CurrentCash = cash
		err = e.store.Save(ctx, p)
		if err == nil {
			e.log.Info().Str("account_id", accountID).Msg("Portfolio bootstrapped from broker")
		}
	default:
		err = loadErr
	}

	if err != nil {
		e.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to persist broker balance")
		return false
	}
	return true
}

// mergePositions overlays broker holdings on the ledger. The broker decides
// what is held and at what cost; the ledger keeps the turtle entry data.
// Ledger order is preserved and new broker holdings are appended.
func mergePositions(ledger []domain.Position, held []domain.BrokerPosition) []domain.Position {
	bySymbol := make(map[string]domain.BrokerPosition, len(held))
	for _, bp := range held {
		bySymbol[bp.Symbol] = bp
	}

	merged := make([]domain.Position, 0, len(held))
	tracked := make(map[string]bool, len(ledger))
	for _, pos := range ledger {
		bp, ok := bySymbol[pos.Symbol]
		if !ok {
			continue
		}
		tracked[pos.Symbol] = true

		// the broker rounds its average, so a ledger average within one tick
		// is the same position and keeps its precision
		resized := pos.Quantity != bp.Quantity ||
			pos.AvgPrice.Sub(bp.AvgPrice).Abs().GreaterThanOrEqual(brokerPriceTick)
		pos.Quantity = bp.Quantity
		if resized {
			pos.AvgPrice = bp.AvgPrice
		}
		pos.CurrentPrice = currentOrAvg(bp)
		if pos.Name == "" {
			pos.Name = bp.Name
		}
		if resized && pos.StopLossPrice.IsPositive() {
			pos.RiskAmount = risk.RiskAmount(pos.AvgPrice, pos.StopLossPrice, pos.Quantity)
		}
		merged = append(merged, pos)
	}

	for _, bp := range held {
		if tracked[bp.Symbol] {
			continue
		}
		merged = append(merged, domain.Position{
			Symbol:       bp.Symbol,
			Name:         bp.Name,
			Quantity:     bp.Quantity,
			AvgPrice:     bp.AvgPrice,
			CurrentPrice: currentOrAvg(bp),
		})
	}

	return merged
}

func currentOrAvg(bp domain.BrokerPosition) decimal.Decimal {
	if bp.CurrentPrice.IsPositive() {
		return bp.CurrentPrice
	}
	return bp.AvgPrice
}

const (
	msgBrokerDown = "Broker unavailable; showing persisted portfolio"
	msgNotLinked  = "Account is not linked to the broker; showing persisted portfolio"
)

// persistedView serves the stored ledger, creating the first-use record when
// the account has none.
func (e *Engine) persistedView(ctx context.Context, accountID, message string) (View, error) {
	p, err := e.store.Load(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = e.bootstrap(ctx, accountID)
	}
	if err != nil {
		return View{}, err
	}

	return View{
		Success:   true,
		Tier:      domain.TierPersisted,
		Portfolio: buildView(p, SettingsFromAccount),
		Persisted: true,
		Message:   message,
	}, nil
}

func (e *Engine) bootstrap(ctx context.Context, accountID string) (*domain.Portfolio, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	// another request may have created it while we waited
	p, err := e.store.Load(ctx, accountID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return p, err
	}

	p = domain.NewPortfolio(accountID, e.cfg.DefaultInitialBalance, e.cfg.FallbackRisk)
	if err := e.store.Save(ctx, p); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("account_id", accountID).
		Str("initial_balance", p.InitialBalance.String()).
		Msg("Portfolio bootstrapped with default balance")
	return p, nil
}
