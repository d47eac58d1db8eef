package reconciliation

import (
	"context"
	"sync"

	"github.com/aristath/turtle/internal/domain"
)

// SessionHolder keeps the last broker session between requests so the HTTP
// layer and the scheduler do not authenticate on every call.
type SessionHolder struct {
	mu      sync.Mutex
	session *domain.Session
}

// Get returns the held session, possibly nil or expired
func (h *SessionHolder) Get() *domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Set replaces the held session
func (h *SessionHolder) Set(s *domain.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
}

// ReconcileWithHolder runs Reconcile using and updating the held session
func (e *Engine) ReconcileWithHolder(ctx context.Context, holder *SessionHolder, accountID string) (*Result, error) {
	res, err := e.Reconcile(ctx, Request{AccountID: accountID, Session: holder.Get()})
	if err != nil {
		return nil, err
	}
	holder.Set(res.Session)
	return res, nil
}
