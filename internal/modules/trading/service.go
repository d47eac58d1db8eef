// Package trading records exits from open positions and the journal of
// closed trades they produce.
package trading

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/database"
	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/performance"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// DefaultHistoryLimit caps trade listings when the caller gives no limit
const DefaultHistoryLimit = 100

// ExitResult is the outcome of ClosePosition
type ExitResult struct {
	Trade     domain.ClosedTrade `json:"trade"`
	Remaining *domain.Position   `json:"remaining,omitempty"` // nil on a full close
	Portfolio *domain.Portfolio  `json:"portfolio"`
}

// Service closes positions. The ledger update, the journal insert and the
// stats update commit together or not at all.
type Service struct {
	db         *sql.DB
	portfolios *portfolio.Repository
	trades     *TradeRepository
	locks      *portfolio.AccountLocker
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new trading service
func NewService(db *sql.DB, portfolios *portfolio.Repository, trades *TradeRepository, locks *portfolio.AccountLocker, log zerolog.Logger) *Service {
	return &Service{
		db:         db,
		portfolios: portfolios,
		trades:     trades,
		locks:      locks,
		now:        time.Now,
		log:        log.With().Str("service", "trading").Logger(),
	}
}

// ClosePosition exits symbol, fully or partially
func (s *Service) ClosePosition(ctx context.Context, accountID, symbol string, req ExitRequest) (*ExitResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.NewValidationError("accountId", "is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	var (
		result   ExitResult
		applyErr error
	)
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.portfolios.UpdateTx(ctx, tx, accountID, func(p *domain.Portfolio) error {
			trade, err := ApplyExit(p, symbol, req, s.now().UTC())
			if err != nil {
				applyErr = err
				return err
			}
			result.Trade = trade
			return nil
		})
		if err != nil {
			return err
		}
		result.Portfolio = p
		return s.trades.InsertTx(ctx, tx, result.Trade)
	})

	switch {
	case applyErr != nil:
		return nil, applyErr
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.ErrNotFound
	case err != nil:
		s.log.Error().Err(err).Str("account_id", accountID).Str("symbol", symbol).Msg("Failed to close position")
		return nil, &domain.PersistenceError{Op: "close", Err: err}
	}

	if idx := result.Portfolio.FindPosition(result.Trade.Symbol); idx >= 0 {
		remaining := result.Portfolio.Positions[idx]
		result.Remaining = &remaining
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", result.Trade.Symbol).
		Str("reason", string(result.Trade.Reason)).
		Int64("quantity", result.Trade.Quantity).
		Str("profit_loss", result.Trade.ProfitLoss.String()).
		Bool("full_close", result.Remaining == nil).
		Msg("Position closed")
	return &result, nil
}

// ListClosedTrades returns the account's journal, newest first
func (s *Service) ListClosedTrades(ctx context.Context, accountID string, limit int) ([]domain.ClosedTrade, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	trades, err := s.trades.ListByAccount(ctx, strings.TrimSpace(accountID), limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_trades", Err: err}
	}
	return trades, nil
}

// ListClosedTradesBySymbol returns the account's journal for one symbol, newest first
func (s *Service) ListClosedTradesBySymbol(ctx context.Context, accountID, symbol string, limit int) ([]domain.ClosedTrade, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	trades, err := s.trades.ListBySymbol(ctx, strings.TrimSpace(accountID), strings.TrimSpace(symbol), limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_trades", Err: err}
	}
	return trades, nil
}

// Summary describes the distribution of every closed trade on the account
func (s *Service) Summary(ctx context.Context, accountID string) (performance.Summary, error) {
	trades, err := s.trades.ListByAccount(ctx, strings.TrimSpace(accountID), 0)
	if err != nil {
		return performance.Summary{}, &domain.PersistenceError{Op: "trade_summary", Err: err}
	}
	return performance.Summarize(trades), nil
}
