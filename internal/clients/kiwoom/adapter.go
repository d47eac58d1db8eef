package kiwoom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ domain.BrokerGateway = (*Gateway)(nil)

// Gateway adapts Client to domain.BrokerGateway
type Gateway struct {
	client *Client
	now    func() time.Time
	log    zerolog.Logger
}

// NewGateway creates a gateway over client
func NewGateway(client *Client, log zerolog.Logger) *Gateway {
	return &Gateway{
		client: client,
		now:    time.Now,
		log:    log.With().Str("service", "kiwoom_gateway").Logger(),
	}
}

// Authenticate issues a new access token
func (g *Gateway) Authenticate(ctx context.Context, appKey, secretKey string) (*domain.Session, error) {
	if strings.TrimSpace(appKey) == "" || strings.TrimSpace(secretKey) == "" {
		return nil, domain.ErrCredentialsMissing
	}

	resp, err := g.client.IssueToken(ctx, appKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	expiresAt, err := parseExpiry(resp.ExpiresDT)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	g.log.Info().Time("expires_at", expiresAt).Msg("Broker session established")
	return &domain.Session{Token: resp.Token, TokenType: tokenType, ExpiresAt: expiresAt}, nil
}

// IsAuthenticated reports whether session is still usable
func (g *Gateway) IsAuthenticated(session *domain.Session) bool {
	return session.Valid(g.now())
}

// GetAccountBalance reads holdings and cash and returns one snapshot
func (g *Gateway) GetAccountBalance(ctx context.Context, session *domain.Session) (*domain.BrokerSnapshot, error) {
	if session == nil || session.Token == "" {
		return nil, domain.ErrSessionExpired
	}

	eval, err := g.client.AccountEvaluation(ctx, session.Token)
	if err != nil {
		return nil, fmt.Errorf("account evaluation: %w", err)
	}
	dep, err := g.client.Deposit(ctx, session.Token)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	return toSnapshot(eval, dep)
}

func toSnapshot(eval *AccountEvaluationResponse, dep *DepositResponse) (*domain.BrokerSnapshot, error) {
	entr, err := parseAmount(dep.Deposit)
	if err != nil {
		return nil, err
	}

	// D+2 is what will actually settle; fall back to today's deposit
	cash := entr
	if strings.TrimSpace(dep.D2Deposit) != "" {
		if cash, err = parseAmount(dep.D2Deposit); err != nil {
			return nil, err
		}
	}

	snap := &domain.BrokerSnapshot{
		Cash:      cash,
		Positions: make([]domain.BrokerPosition, 0, len(eval.Holdings)),
	}

	if strings.TrimSpace(eval.EstimatedAsset) != "" {
		total, err := parseAmount(eval.EstimatedAsset)
		if err != nil {
			return nil, err
		}
		snap.TotalAsset = &total
	}

	stats := domain.BrokerStats{Deposit: entr}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{eval.TotalPurchase, &stats.TotalPurchase},
		{eval.TotalEvaluation, &stats.TotalEvaluation},
		{eval.TotalEvaluationPL, &stats.TotalEvaluationPL},
		{eval.TotalProfitRate, &stats.TotalProfitRate},
	} {
		v, err := parseAmount(f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	snap.Stats = stats

	for _, h := range eval.Holdings {
		pos, err := toPosition(h)
		if err != nil {
			return nil, err
		}
		if pos.Quantity <= 0 {
			continue
		}
		snap.Positions = append(snap.Positions, pos)
	}

	return snap, nil
}

func toPosition(h Holding) (domain.BrokerPosition, error) {
	qty, err := parseQuantity(h.Quantity)
	if err != nil {
		return domain.BrokerPosition{}, err
	}
	avg, err := parsePrice(h.PurchasePrice)
	if err != nil {
		return domain.BrokerPosition{}, err
	}
	cur, err := parsePrice(h.CurrentPrice)
	if err != nil {
		return domain.BrokerPosition{}, err
	}
	pl, err := parseAmount(h.EvaluationPL)
	if err != nil {
		return domain.BrokerPosition{}, err
	}
	rate, err := parseAmount(h.ProfitRate)
	if err != nil {
		return domain.BrokerPosition{}, err
	}

	return domain.BrokerPosition{
		Symbol:       normalizeSymbol(h.Code),
		Name:         strings.TrimSpace(h.Name),
		Quantity:     qty,
		AvgPrice:     avg,
		CurrentPrice: cur,
		EvaluationPL: pl,
		ProfitRate:   rate,
	}, nil
}
