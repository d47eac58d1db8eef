package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockPortfolioStore is an in-memory domain.PortfolioStore.
// Stored documents are cloned on the way in and out.
type MockPortfolioStore struct {
	mu         sync.Mutex
	portfolios map[string]*domain.Portfolio
	err        error
	saveErr    error
	saves      int
}

// NewMockPortfolioStore creates an empty store
func NewMockPortfolioStore() *MockPortfolioStore {
	return &MockPortfolioStore{portfolios: make(map[string]*domain.Portfolio)}
}

// Put seeds a portfolio without counting as a save
func (m *MockPortfolioStore) Put(p *domain.Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios[p.AccountID] = p.Clone()
}

// Get returns the stored copy, or nil
func (m *MockPortfolioStore) Get(accountID string) *domain.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolios[accountID].Clone()
}

// SetError makes every operation fail with err (store down)
func (m *MockPortfolioStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetSaveError makes only writes fail
func (m *MockPortfolioStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns how many successful writes happened
func (m *MockPortfolioStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Load implements domain.PortfolioStore
func (m *MockPortfolioStore) Load(_ context.Context, accountID string) (*domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.portfolios[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// Save implements domain.PortfolioStore
func (m *MockPortfolioStore) Save(_ context.Context, p *domain.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.portfolios[p.AccountID] = p.Clone()
	m.saves++
	return nil
}

// Exists implements domain.PortfolioStore
func (m *MockPortfolioStore) Exists(_ context.Context, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.portfolios[accountID]
	return ok, nil
}

// Update implements domain.PortfolioStore
func (m *MockPortfolioStore) Update(_ context.Context, accountID string, fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	current, ok := m.portfolios[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.portfolios[accountID] = working.Clone()
	m.saves++
	return working, nil
}

// MockBrokerGateway is a testify mock of domain.BrokerGateway
type MockBrokerGateway struct {
	mock.Mock
}

// Authenticate implements domain.BrokerGateway
func (m *MockBrokerGateway) Authenticate(ctx context.Context, appKey, secretKey string) (*domain.Session, error) {
	args := m.Called(ctx, appKey, secretKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

// IsAuthenticated implements domain.BrokerGateway
func (m *MockBrokerGateway) IsAuthenticated(session *domain.Session) bool {
	return session.Valid(time.Now())
}

// GetAccountBalance implements domain.BrokerGateway
func (m *MockBrokerGateway) GetAccountBalance(ctx context.Context, session *domain.Session) (*domain.BrokerSnapshot, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BrokerSnapshot), args.Error(1)
}
