package kiwoom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/turtle/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(zerolog.Nop(), WithBaseURL(server.URL), WithRateLimit(100))
}

func TestIssueToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.Equal(t, "application/json;charset=UTF-8", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		assert.Equal(t, "app", body["appkey"])
		assert.Equal(t, "secret", body["secretkey"])

		_, _ = w.Write([]byte(`{"expires_dt":"20261018235959","token_type":"bearer","token":"tok-1","return_code":0,"return_msg":"OK"}`))
	})

	resp, err := client.IssueToken(context.Background(), "app", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, "20261018235959", resp.ExpiresDT)
}

func TestIssueToken_ReturnCodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"return_code":3,"return_msg":"invalid appkey"}`))
	})

	_, err := client.IssueToken(context.Background(), "bad", "bad")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 3, apiErr.ReturnCode)
	assert.Equal(t, "invalid appkey", apiErr.Message)
	assert.False(t, errors.Is(err, domain.ErrSessionExpired))
}

func TestPost_UnauthorizedMapsToSessionExpired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"return_code":8005,"return_msg":"token expired"}`))
	})

	_, err := client.Deposit(context.Background(), "stale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSessionExpired))
}

func TestDeposit_SendsHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, accountPath, r.URL.Path)
		assert.Equal(t, apiIDDeposit, r.Header.Get("api-id"))
		assert.Equal(t, "Bearer tok", r.Header.Get("authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3", body["qry_tp"])

		_, _ = w.Write([]byte(`{"entr":"000000003600000","d2_entra":"000000003500000","return_code":0,"return_msg":"OK"}`))
	})

	resp, err := client.Deposit(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "000000003600000", resp.Deposit)
	assert.Equal(t, "000000003500000", resp.D2Deposit)
}

func TestAccountEvaluation_FollowsContinuation(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, apiIDAccountEvaluation, r.Header.Get("api-id"))

		if calls == 1 {
			assert.Empty(t, r.Header.Get("cont-yn"))
			w.Header().Set("cont-yn", "Y")
			w.Header().Set("next-key", "page-2")
			_, _ = w.Write([]byte(`{"prsm_dpst_aset_amt":"000000012750000","acnt_evlt_remn_indv_tot":[{"stk_cd":"A005930","stk_nm":"삼성전자","rmnd_qty":"000000000100"}],"return_code":0}`))
			return
		}

		assert.Equal(t, "Y", r.Header.Get("cont-yn"))
		assert.Equal(t, "page-2", r.Header.Get("next-key"))
		_, _ = w.Write([]byte(`{"acnt_evlt_remn_indv_tot":[{"stk_cd":"A035720","stk_nm":"카카오","rmnd_qty":"000000000050"}],"return_code":0}`))
	})

	resp, err := client.AccountEvaluation(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "000000012750000", resp.EstimatedAsset)
	require.Len(t, resp.Holdings, 2)
	assert.Equal(t, "A005930", resp.Holdings[0].Code)
	assert.Equal(t, "A035720", resp.Holdings[1].Code)
}

func TestPost_HonoursContextDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Deposit(ctx, "tok")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"000000012345", "12345"},
		{"-00000001234", "-1234"},
		{"+71000", "71000"},
		{"", "0"},
		{"  ", "0"},
		{"12.50", "12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := parseAmount("abc")
	assert.Error(t, err)

	price, err := parsePrice("-71000")
	require.NoError(t, err)
	assert.Equal(t, "71000", price.String())

	qty, err := parseQuantity("000000000060")
	require.NoError(t, err)
	assert.Equal(t, int64(60), qty)

	assert.Equal(t, "005930", normalizeSymbol("A005930"))
	assert.Equal(t, "005930", normalizeSymbol("005930"))
	assert.Equal(t, "ABCDEFGH", normalizeSymbol("ABCDEFGH"))

	exp, err := parseExpiry("20261018235959")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 14, 59, 59, 0, time.UTC), exp.UTC())

	_, err = parseExpiry("tomorrow")
	assert.Error(t, err)
}
