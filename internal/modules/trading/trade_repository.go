package trading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// closedTradeColumns must match scanClosedTrade
const closedTradeColumns = `id, account_id, symbol, name, entry_signal, reason, quantity, entry_price, exit_price, profit_loss, entry_date, closed_at`

// storedTimeLayout is fixed width so text order is time order
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TradeRepository stores the closed-trade journal
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "closed_trades").Logger(),
	}
}

// InsertTx records a closed trade inside tx
func (r *TradeRepository) InsertTx(ctx context.Context, tx *sql.Tx, trade domain.ClosedTrade) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO closed_trades (`+closedTradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.ID,
		trade.AccountID,
		trade.Symbol,
		trade.Name,
		string(trade.EntrySignal),
		string(trade.Reason),
		trade.Quantity,
		trade.EntryPrice.String(),
		trade.ExitPrice.String(),
		trade.ProfitLoss.String(),
		trade.EntryDate.UTC().Format(storedTimeLayout),
		trade.ClosedAt.UTC().Format(storedTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert closed trade: %w", err)
	}

	r.log.Info().
		Str("account_id", trade.AccountID).
		Str("symbol", trade.Symbol).
		Int64("quantity", trade.Quantity).
		Str("profit_loss", trade.ProfitLoss.String()).
		Msg("Closed trade recorded")
	return nil
}

// ListByAccount returns the account's trades, newest first. limit <= 0 returns all.
func (r *TradeRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.ClosedTrade, error) {
	query := "SELECT " + closedTradeColumns + " FROM closed_trades WHERE account_id = ? ORDER BY closed_at DESC, id"
	args := []interface{}{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// ListBySymbol returns the account's trades in symbol, newest first. limit <= 0 returns all.
func (r *TradeRepository) ListBySymbol(ctx context.Context, accountID, symbol string, limit int) ([]domain.ClosedTrade, error) {
	query := "SELECT " + closedTradeColumns + " FROM closed_trades WHERE account_id = ? AND symbol = ? ORDER BY closed_at DESC, id"
	args := []interface{}{accountID, symbol}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

func (r *TradeRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.ClosedTrade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	defer rows.Close()

	trades := []domain.ClosedTrade{}
	for rows.Next() {
		trade, err := scanClosedTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed trades: %w", err)
	}
	return trades, nil
}

func scanClosedTrade(rows *sql.Rows) (domain.ClosedTrade, error) {
	var (
		t                                 domain.ClosedTrade
		signal, reason                    string
		entryPrice, exitPrice, profitLoss string
		entryDate, closedAt               string
	)
	err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.Name, &signal, &reason, &t.Quantity,
		&entryPrice, &exitPrice, &profitLoss, &entryDate, &closedAt)
	if err != nil {
		return t, fmt.Errorf("failed to scan closed trade: %w", err)
	}
	t.EntrySignal = domain.EntrySignal(signal)
	t.Reason = domain.ExitReason(reason)

	if t.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return t, fmt.Errorf("closed trade %s: entry price: %w", t.ID, err)
	}
	if t.ExitPrice, err = decimal.NewFromString(exitPrice); err != nil {
		return t, fmt.Errorf("closed trade %s: exit price: %w", t.ID, err)
	}
	if t.ProfitLoss, err = decimal.NewFromString(profitLoss); err != nil {
		return t, fmt.Errorf("closed trade %s: profit/loss: %w", t.ID, err)
	}
	if t.EntryDate, err = time.Parse(storedTimeLayout, entryDate); err != nil {
		return t, fmt.Errorf("closed trade %s: entry date: %w", t.ID, err)
	}
	if t.ClosedAt, err = time.Parse(storedTimeLayout, closedAt); err != nil {
		return t, fmt.Errorf("closed trade %s: closed at: %w", t.ID, err)
	}
	return t, nil
}
