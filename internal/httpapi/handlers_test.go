package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/lottery"
)

var (
	testToken     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testSubMgr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testOracle    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testRecipient = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

type apiFixture struct {
	router *mux.Router
	oracle *lottery.MockOracleClient
	minter *lottery.MockTokenMinter
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	oracle := &lottery.MockOracleClient{NextNonce: big.NewInt(42)}
	minter := &lottery.MockTokenMinter{}
	logger := logging.New(logging.Config{Service: "test", Level: "error", Output: io.Discard})

	svc, err := lottery.New(lottery.Config{
		TokenAddress:        testToken,
		SubscriptionManager: testSubMgr,
		OracleAddress:       testOracle,
	}, lottery.NewMemoryStore(), oracle, minter, logger)
	if err != nil {
		t.Fatalf("lottery.New: %v", err)
	}

	router := mux.NewRouter()
	NewHandler(svc, logger).Register(router)
	return &apiFixture{router: router, oracle: oracle, minter: minter}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) mint(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/mints",
		map[string]string{"recipient": testRecipient.Hex()}, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("mint request status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMintEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/mints",
		map[string]string{"recipient": testRecipient.Hex()}, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp requestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Nonce != "42" || resp.Status != "pending" {
		t.Errorf("response = %+v", resp)
	}
}

func TestMintEndpointRejectsBadRecipient(t *testing.T) {
	f := newAPIFixture(t)

	for _, recipient := range []string{"", "not-an-address", "0x123"} {
		rec := f.do(t, http.MethodPost, "/v1/mints",
			map[string]string{"recipient": recipient}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("recipient %q: status = %d, want 400", recipient, rec.Code)
		}
	}
	if len(f.oracle.Calls) != 0 {
		t.Error("oracle called for invalid recipient")
	}
}

func TestFulfillmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	rec := f.do(t, http.MethodPost, "/v1/fulfillments",
		fulfillmentBody{Nonce: "42", RandomValues: []string{"7"}},
		map[string]string{CallerAddressHeader: testOracle.Hex()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp requestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "fulfilled" || resp.Amount != "8" {
		t.Errorf("response = %+v", resp)
	}

	if len(f.minter.Calls) != 1 || f.minter.Calls[0].Account != testRecipient {
		t.Errorf("mint calls = %+v", f.minter.Calls)
	}
}

func TestFulfillmentEndpointUnauthorizedCaller(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	rec := f.do(t, http.MethodPost, "/v1/fulfillments",
		fulfillmentBody{Nonce: "42", RandomValues: []string{"7"}},
		map[string]string{CallerAddressHeader: "0x9999999999999999999999999999999999999999"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
	if len(f.minter.Calls) != 0 {
		t.Error("mint attempted for unauthorized caller")
	}
}

func TestFulfillmentEndpointMissingCallerHeader(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	rec := f.do(t, http.MethodPost, "/v1/fulfillments",
		fulfillmentBody{Nonce: "42", RandomValues: []string{"7"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFulfillmentEndpointErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	tests := []struct {
		name       string
		body       fulfillmentBody
		wantStatus int
	}{
		{"unknown nonce", fulfillmentBody{Nonce: "777", RandomValues: []string{"7"}}, http.StatusNotFound},
		{"empty random values", fulfillmentBody{Nonce: "42", RandomValues: nil}, http.StatusBadRequest},
		{"bad nonce", fulfillmentBody{Nonce: "xyz", RandomValues: []string{"7"}}, http.StatusBadRequest},
		{"bad random value", fulfillmentBody{Nonce: "42", RandomValues: []string{"xyz"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/fulfillments", tt.body,
				map[string]string{CallerAddressHeader: testOracle.Hex()})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestFulfillmentEndpointReplayConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	headers := map[string]string{CallerAddressHeader: testOracle.Hex()}
	body := fulfillmentBody{Nonce: "42", RandomValues: []string{"7"}}

	if rec := f.do(t, http.MethodPost, "/v1/fulfillments", body, headers); rec.Code != http.StatusOK {
		t.Fatalf("first fulfillment status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/v1/fulfillments", body, headers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay status = %d, want 409", rec.Code)
	}
}

func TestGetRequestEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	rec := f.do(t, http.MethodGet, "/v1/requests/42", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp requestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Recipient != testRecipient.Hex() {
		t.Errorf("recipient = %s", resp.Recipient)
	}

	if rec := f.do(t, http.MethodGet, "/v1/requests/777", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown nonce status = %d, want 404", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.mint(t)

	rec := f.do(t, http.MethodGet, "/v1/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats lottery.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalRequests != 1 || stats.PendingRequests != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
