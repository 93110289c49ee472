package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"YieldFarm/internal/farm"
	"YieldFarm/internal/oracle"
	"YieldFarm/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0x000000000000000000000000000000000000a0e4")
	custody = common.HexToAddress("0x000000000000000000000000000000000000fa4d")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	tstAddr = common.HexToAddress("0x0000000000000000000000000000000000007357")
	rwdAddr = common.HexToAddress("0x0000000000000000000000000000000000004e4d")
	feedTST = common.HexToAddress("0x000000000000000000000000000000000000feed")
)

type harness struct {
	handler http.Handler
	tst     *token.MemLedger
	rwd     *token.MemLedger
}

func newHarness(t *testing.T, limiter *RateLimiter) *harness {
	t.Helper()
	tokens := token.NewDirectory()
	feeds := oracle.NewDirectory()
	tst := token.NewMemLedger("TST", 18)
	rwd := token.NewMemLedger("RWD", 18)
	tokens.Register(tstAddr, tst)
	tokens.Register(rwdAddr, rwd)
	rwd.Mint(custody, big.NewInt(1_000_000))
	price, _ := new(big.Int).SetString("4000000000000000000000", 10)
	feeds.Register(feedTST, oracle.NewMockFeed(price, 18))

	f, err := farm.New(farm.Options{Owner: owner, Custody: custody, RewardAsset: rwdAddr}, tokens, feeds, nil)
	require.NoError(t, err)
	return &harness{handler: NewServer(f, nil, limiter).Routes(), tst: tst, rwd: rwd}
}

func (h *harness) do(method, path string, caller common.Address, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != (common.Address{}) {
		req.Header.Set(CallerHeader, caller.Hex())
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (h *harness) configure(t *testing.T) {
	t.Helper()
	rec := h.do(http.MethodPost, "/assets", owner, jsonBody(t, map[string]string{"asset": tstAddr.Hex()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPut, "/assets/"+tstAddr.Hex()+"/feed", owner, jsonBody(t, map[string]string{"feed": feedTST.Hex()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAPI_StakeValueIssue(t *testing.T) {
	h := newHarness(t, nil)
	h.configure(t)
	h.tst.Mint(alice, big.NewInt(100))
	require.NoError(t, h.tst.Approve(context.Background(), alice, custody, big.NewInt(100)))

	rec := h.do(http.MethodPost, "/stake", custody, jsonBody(t, map[string]string{"asset": tstAddr.Hex(), "amount": "100"}))
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/stake", alice, jsonBody(t, map[string]string{"asset": tstAddr.Hex(), "amount": "100"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "100", decodeMap(t, rec)["amount"])

	rec = h.do(http.MethodGet, "/users/"+alice.Hex()+"/value", common.Address{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "400000", decodeMap(t, rec)["value"])

	rec = h.do(http.MethodGet, "/stakers/0", common.Address{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.Hex(), decodeMap(t, rec)["user"])

	rec = h.do(http.MethodPost, "/issue", alice, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/issue", owner, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bal, _ := h.rwd.BalanceOf(context.Background(), alice)
	assert.Equal(t, int64(200000), bal.Int64())
}

func TestAPI_ErrorStatuses(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		caller common.Address
		body   string
		want   int
	}{
		{"missing caller", http.MethodPost, "/stake", common.Address{}, `{"asset":"` + tstAddr.Hex() + `","amount":"1"}`, http.StatusUnauthorized},
		{"not owner", http.MethodPost, "/assets", alice, `{"asset":"` + tstAddr.Hex() + `"}`, http.StatusForbidden},
		{"asset not allowed", http.MethodPost, "/stake", alice, `{"asset":"` + tstAddr.Hex() + `","amount":"1"}`, http.StatusBadRequest},
		{"bad amount", http.MethodPost, "/stake", alice, `{"asset":"` + tstAddr.Hex() + `","amount":"x"}`, http.StatusBadRequest},
		{"no stake", http.MethodPost, "/unstake", alice, `{"asset":"` + tstAddr.Hex() + `"}`, http.StatusNotFound},
		{"index out of range", http.MethodGet, "/stakers/3", common.Address{}, "", http.StatusNotFound},
		{"bad credit", http.MethodPost, "/credit", alice, `{"amount":"0","term_periods":4}`, http.StatusBadRequest},
		{"nothing to claim", http.MethodPost, "/claim", alice, "", http.StatusBadRequest},
		{"negative stake", http.MethodPost, "/stake", alice, `{"asset":"` + tstAddr.Hex() + `","amount":"-5"}`, http.StatusBadRequest},
		{"negative value query", http.MethodGet, "/assets/" + tstAddr.Hex() + "/value?amount=-1", common.Address{}, "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_Credit(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/credit", alice, jsonBody(t, map[string]any{
		"amount": "20", "term_periods": 4, "rate_per_period": 2, "label": "Project Lone",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/users/"+alice.Hex()+"/credit", common.Address{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []creditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "20", apps[0].Amount)
	assert.Equal(t, "Project Lone", apps[0].Label)
}

func TestAPI_RateLimit(t *testing.T) {
	h := newHarness(t, NewRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/status", alice, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/status", alice, "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/status", owner, "").Code)
}

func TestAPI_Metrics(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/status", common.Address{}, "")

	rec := h.do(http.MethodGet, "/metrics", common.Address{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
