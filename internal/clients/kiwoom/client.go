// Package kiwoom provides a client for the Kiwoom Securities REST API.
package kiwoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	ProductionBaseURL = "https://api.kiwoom.com"
	MockBaseURL       = "https://mockapi.kiwoom.com"
	DefaultTimeout    = 10 * time.Second
	DefaultRateLimit  = 5 // requests per second

	tokenPath   = "/oauth2/token"
	accountPath = "/api/dostk/acnt"

	apiIDAccountEvaluation = "kt00018" // 계좌평가잔고내역요청
	apiIDDeposit           = "kt00001" // 예수금상세현황요청

	// maxPages bounds continuation-key paging on holdings
	maxPages = 20
)

// Client talks to the Kiwoom REST API. It holds no token; callers pass one per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Kiwoom client
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    ProductionBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:        log.With().Str("client", "kiwoom").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-success HTTP status or a non-zero return_code
type APIError struct {
	StatusCode int
	ReturnCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kiwoom API error: %s (status: %d, return_code: %d, endpoint: %s)",
		e.Message, e.StatusCode, e.ReturnCode, e.Endpoint)
}

// Unwrap maps rejected credentials to domain.ErrSessionExpired
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrSessionExpired
	}
	return nil
}

// IssueToken exchanges the app key and secret for an access token (au10001)
func (c *Client) IssueToken(ctx context.Context, appKey, secretKey string) (*TokenResponse, error) {
	req := tokenRequest{
		GrantType: "client_credentials",
		AppKey:    appKey,
		SecretKey: secretKey,
	}

	var resp TokenResponse
	if _, err := c.post(ctx, tokenPath, "au10001", "", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{StatusCode: http.StatusOK, ReturnCode: resp.ReturnCode, Message: "empty token in response", Endpoint: tokenPath}
	}

	c.log.Debug().Str("expires_dt", resp.ExpiresDT).Msg("Access token issued")
	return &resp, nil
}

// AccountEvaluation returns the account totals and every holding (kt00018),
// following continuation keys until the broker reports no more pages.
func (c *Client) AccountEvaluation(ctx context.Context, token string) (*AccountEvaluationResponse, error) {
	req := accountEvaluationRequest{QueryType: "1", Exchange: "KRX"}

	var (
		merged *AccountEvaluationResponse
		cont   *continuation
	)
	for page := 0; page < maxPages; page++ {
		var resp AccountEvaluationResponse
		next, err := c.post(ctx, accountPath, apiIDAccountEvaluation, token, cont, req, &resp)
		if err != nil {
			return nil, err
		}

		if merged == nil {
			merged = &resp
		} else {
			merged.Holdings = append(merged.Holdings, resp.Holdings...)
		}

		if next == nil {
			return merged, nil
		}
		cont = next
	}

	c.log.Warn().Int("pages", maxPages).Msg("Holdings truncated at page limit")
	return merged, nil
}

// Deposit returns the cash detail for the account (kt00001)
func (c *Client) Deposit(ctx context.Context, token string) (*DepositResponse, error) {
	var resp DepositResponse
	if _, err := c.post(ctx, accountPath, apiIDDeposit, token, nil, depositRequest{QueryType: "3"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post performs a rate-limited POST and decodes a Kiwoom envelope into out.
// It returns the continuation to request the next page, or nil.
func (c *Client) post(ctx context.Context, path, apiID, token string, cont *continuation, body, out interface{}) (*continuation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("api-id", apiID)
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}
	if cont != nil {
		req.Header.Set("cont-yn", "Y")
		req.Header.Set("next-key", cont.nextKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("api_id", apiID).Msg("Kiwoom request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("api_id", apiID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Kiwoom request")

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(raw), Endpoint: apiID}
	}

	var envelope envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.ReturnCode != 0 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ReturnCode: envelope.ReturnCode,
			Message:    envelope.ReturnMsg,
			Endpoint:   apiID,
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.Header.Get("cont-yn") == "Y" && resp.Header.Get("next-key") != "" {
		return &continuation{nextKey: resp.Header.Get("next-key")}, nil
	}
	return nil, nil
}

type continuation struct {
	nextKey string
}
