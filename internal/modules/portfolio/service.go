package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Defaults are applied when an account is initialized without explicit values
type Defaults struct {
	InitialBalance decimal.Decimal
	RiskSettings   domain.RiskSettings
}

// InitOptions override Defaults for an explicit initialization
type InitOptions struct {
	InitialBalance *decimal.Decimal     `json:"initialBalance,omitempty"`
	RiskSettings   *domain.RiskSettings `json:"riskSettings,omitempty"`
}

// RiskReport is the stored ledger measured against its risk settings
type RiskReport struct {
	AccountID           string              `json:"accountId"`
	PortfolioValue      decimal.Decimal     `json:"portfolioValue"`
	CurrentRiskExposure decimal.Decimal     `json:"currentRiskExposure"`
	UnrealizedPL        decimal.Decimal     `json:"unrealizedPL"`
	RiskSettings        domain.RiskSettings `json:"riskSettings"`
	Limits              risk.LimitStatus    `json:"limits"`
}

// UpsertResult is the outcome of a position upsert
type UpsertResult struct {
	Outcome   UpsertOutcome     `json:"outcome"`
	Position  domain.Position   `json:"position"`
	Portfolio *domain.Portfolio `json:"-"`
}

// Service owns the write path of the persisted ledger.
//
// Every mutation runs under the account lock and inside a single store
// transaction, so concurrent writers to one account cannot lose updates.
// Reads of the reconciled view go through the reconciliation engine instead.
type Service struct {
	store    domain.PortfolioStore
	locks    *AccountLocker
	defaults Defaults
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(store domain.PortfolioStore, locks *AccountLocker, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		locks:    locks,
		defaults: defaults,
		now:      time.Now,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// Initialize creates the account's portfolio if it does not exist yet.
// An existing portfolio is returned untouched with created=false.
func (s *Service) Initialize(ctx context.Context, accountID string, opts InitOptions) (*domain.Portfolio, bool, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, false, err
	}

	balance := s.defaults.InitialBalance
	if opts.InitialBalance != nil {
		if opts.InitialBalance.IsNegative() {
			return nil, false, domain.NewValidationError("initialBalance", "must not be negative")
		}
		balance = *opts.InitialBalance
	}
	settings := s.defaults.RiskSettings
	if opts.RiskSettings != nil {
		if err := ValidateRiskSettings(*opts.RiskSettings); err != nil {
			return nil, false, err
		}
		settings = *opts.RiskSettings
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	existing, err := s.store.Load(ctx, accountID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, persistenceErr("load", err)
	}

	p := domain.NewPortfolio(accountID, balance, settings)
	if err := s.store.Save(ctx, p); err != nil {
		return nil, false, persistenceErr("save", err)
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("initial_balance", balance.String()).
		Msg("Portfolio initialized")
	return p, true, nil
}

// Get returns the persisted portfolio without reconciliation
func (s *Service) Get(ctx context.Context, accountID string) (*domain.Portfolio, error) {
	p, err := s.store.Load(ctx, accountID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, persistenceErr("load", err)
	}
	return p, err
}

// RiskStatus evaluates the persisted ledger against the account's limits
func (s *Service) RiskStatus(ctx context.Context, accountID string) (*RiskReport, error) {
	id, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m := risk.Calculate(p)
	return &RiskReport{
		AccountID:           p.AccountID,
		PortfolioValue:      m.PortfolioValue,
		CurrentRiskExposure: m.CurrentRiskExposure,
		UnrealizedPL:        m.UnrealizedPL,
		RiskSettings:        p.RiskSettings,
		Limits:              risk.EvaluateLimits(p.CurrentCash, m, p.RiskSettings),
	}, nil
}

// UpsertPosition inserts or updates symbol in the account's ledger
func (s *Service) UpsertPosition(ctx context.Context, accountID, symbol string, upd domain.PositionUpdate) (*UpsertResult, error) {
	result := &UpsertResult{}

	p, err := s.mutate(ctx, accountID, "upsert", func(p *domain.Portfolio) error {
		pos, outcome, err := ApplyUpsert(p, symbol, upd, s.now())
		if err != nil {
			return err
		}
		result.Position, result.Outcome = pos, outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Portfolio = p

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", symbol).
		Str("outcome", string(result.Outcome)).
		Msg("Position upserted")
	return result, nil
}

// RemovePosition deletes symbol from the ledger. Removing a symbol that is
// not held succeeds with removed=false; a missing portfolio is ErrNotFound.
func (s *Service) RemovePosition(ctx context.Context, accountID, symbol string) (bool, error) {
	var removed bool
	_, err := s.mutate(ctx, accountID, "remove", func(p *domain.Portfolio) error {
		removed = RemovePosition(p, symbol)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", symbol).
		Bool("removed", removed).
		Msg("Position remove requested")
	return removed, nil
}

// AddFill adds to an existing position at a new price
func (s *Service) AddFill(ctx context.Context, accountID, symbol string, fill Fill) (*domain.Position, error) {
	var pos domain.Position
	_, err := s.mutate(ctx, accountID, "fill", func(p *domain.Portfolio) error {
		var err error
		pos, err = AddFill(p, symbol, fill)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", symbol).
		Int64("quantity", fill.Quantity).
		Str("avg_price", pos.AvgPrice.String()).
		Msg("Fill added")
	return &pos, nil
}

// UpdateRiskSettings replaces the account's risk policy
func (s *Service) UpdateRiskSettings(ctx context.Context, accountID string, settings domain.RiskSettings) (*domain.Portfolio, error) {
	if err := ValidateRiskSettings(settings); err != nil {
		return nil, err
	}
	return s.mutate(ctx, accountID, "risk_settings", func(p *domain.Portfolio) error {
		p.RiskSettings = settings
		return nil
	})
}

// PlanEntry sizes a new position against the account's persisted ledger
// and risk settings
func (s *Service) PlanEntry(ctx context.Context, accountID string, req risk.EntryRequest) (*risk.EntryPlan, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return risk.PlanEntry(req, p, p.RiskSettings)
}

func (s *Service) mutate(ctx context.Context, accountID, op string, fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	accountID, err := normalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	p, err := s.store.Update(ctx, accountID, func(p *domain.Portfolio) error {
		if err := fn(p); err != nil {
			return err
		}
		RefreshEquity(p)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || domain.IsValidation(err) {
			return nil, err
		}
		s.log.Error().Err(err).Str("account_id", accountID).Str("op", op).Msg("Portfolio write failed")
		return nil, persistenceErr(op, err)
	}
	return p, nil
}

// ValidateRiskSettings requires every fraction to be in (0, 1]
func ValidateRiskSettings(rs domain.RiskSettings) error {
	one := decimal.NewFromInt(1)
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"maxRiskPerTrade", rs.MaxRiskPerTrade},
		{"maxTotalRisk", rs.MaxTotalRisk},
		{"minCashReserve", rs.MinCashReserve},
	}
	for _, f := range fields {
		if !f.value.IsPositive() || f.value.GreaterThan(one) {
			return domain.NewValidationError(f.name, "must be a fraction in (0, 1]")
		}
	}
	if rs.MaxRiskPerTrade.GreaterThan(rs.MaxTotalRisk) {
		return domain.NewValidationError("maxRiskPerTrade", "must not exceed maxTotalRisk")
	}
	return nil
}

func normalizeAccountID(accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", domain.NewValidationError("accountId", "is required")
	}
	return accountID, nil
}

func persistenceErr(op string, err error) error {
	if domain.IsPersistence(err) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
