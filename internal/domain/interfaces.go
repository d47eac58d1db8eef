package domain

import "context"

// PortfolioStore persists one Portfolio document per account.
// Load returns ErrNotFound when no record exists.
type PortfolioStore interface {
	Load(ctx context.Context, accountID string) (*Portfolio, error)
	Save(ctx context.Context, p *Portfolio) error
	Exists(ctx context.Context, accountID string) (bool, error)

	// Update runs fn against the stored record inside a single transaction
	// and saves the result. fn's error aborts the write and is returned as-is.
	Update(ctx context.Context, accountID string, fn func(*Portfolio) error) (*Portfolio, error)
}

// BrokerGateway is the live account capability.
// Implementations must honour ctx deadlines on every network call.
type BrokerGateway interface {
	Authenticate(ctx context.Context, appKey, secretKey string) (*Session, error)
	IsAuthenticated(session *Session) bool
	GetAccountBalance(ctx context.Context, session *Session) (*BrokerSnapshot, error)
}
