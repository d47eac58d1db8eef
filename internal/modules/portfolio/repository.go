package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/turtle/internal/database"
	"github.com/aristath/turtle/internal/domain"
	"github.com/rs/zerolog"
)

// Repository stores one JSON portfolio document per account in portfolio.db.
// It implements domain.PortfolioStore.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

var _ domain.PortfolioStore = (*Repository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Load returns the stored portfolio or domain.ErrNotFound
func (r *Repository) Load(ctx context.Context, accountID string) (*domain.Portfolio, error) {
	return r.load(ctx, r.db, accountID)
}

// Save writes p, replacing any existing document for the account
func (r *Repository) Save(ctx context.Context, p *domain.Portfolio) error {
	if err := r.save(ctx, r.db, p); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Exists reports whether a document is stored for accountID
func (r *Repository) Exists(ctx context.Context, accountID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM portfolios WHERE account_id = ?", accountID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio %s: %w", accountID, err)
	}
	return n > 0, nil
}

// mutationError marks an error returned by the caller's mutation so it
// reaches the caller unwrapped
type mutationError struct{ err error }

func (e *mutationError) Error() string { return e.err.Error() }
func (e *mutationError) Unwrap() error { return e.err }

// Update loads, mutates and saves a portfolio inside one transaction
func (r *Repository) Update(ctx context.Context, accountID string, fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	var result *domain.Portfolio

	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		result, err = r.updateTx(ctx, tx, accountID, fn)
		return err
	})

	var me *mutationError
	switch {
	case errors.As(err, &me):
		return nil, me.err
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.ErrNotFound
	case err != nil:
		return nil, &domain.PersistenceError{Op: "update", Err: err}
	}
	return result, nil
}

// UpdateTx is Update for callers that need to write other tables in the same transaction
func (r *Repository) UpdateTx(ctx context.Context, tx *sql.Tx, accountID string, fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	result, err := r.updateTx(ctx, tx, accountID, fn)
	var me *mutationError
	if errors.As(err, &me) {
		return nil, me.err
	}
	return result, err
}

func (r *Repository) updateTx(ctx context.Context, tx *sql.Tx, accountID string, fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	p, err := r.load(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, &mutationError{err: err}
	}
	if err := r.save(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListAccountIDs returns every stored account, sorted
func (r *Repository) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT account_id FROM portfolios ORDER BY account_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) load(ctx context.Context, q querier, accountID string) (*domain.Portfolio, error) {
	var document string
	err := q.QueryRowContext(ctx,
		"SELECT document FROM portfolios WHERE account_id = ?", accountID,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio %s: %w", accountID, err)
	}

	var p domain.Portfolio
	if err := json.Unmarshal([]byte(document), &p); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio %s: %w", accountID, err)
	}
	if p.Positions == nil {
		p.Positions = []domain.Position{}
	}
	return &p, nil
}

func (r *Repository) save(ctx context.Context, q querier, p *domain.Portfolio) error {
	if p.AccountID == "" {
		return fmt.Errorf("portfolio has no account id")
	}

	document, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio %s: %w", p.AccountID, err)
	}

	now := r.now().UTC().Format(time.RFC3339)
	_, err = q.ExecContext(ctx, `
		INSERT INTO portfolios (account_id, document, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			document = excluded.document,
			version = portfolios.version + 1,
			updated_at = excluded.updated_at
	`, p.AccountID, string(document), now, now)
	if err != nil {
		return fmt.Errorf("failed to save portfolio %s: %w", p.AccountID, err)
	}

	r.log.Debug().
		Str("account_id", p.AccountID).
		Int("positions", len(p.Positions)).
		Msg("Portfolio saved")
	return nil
}
