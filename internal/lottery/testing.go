package lottery

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore is an in-memory Store for tests and single-node deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]PendingRequest
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]PendingRequest)}
}

func (m *MemoryStore) CreateRequest(ctx context.Context, req PendingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.Nonce.String()] = req
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, nonce *big.Int) (PendingRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[nonce.String()]
	if !ok {
		return PendingRequest{}, fmt.Errorf("%w: %s", ErrUnknownNonce, nonce)
	}
	return req, nil
}

func (m *MemoryStore) MarkFulfilled(ctx context.Context, nonce *big.Int, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[nonce.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNonce, nonce)
	}
	req.Status = StatusFulfilled
	req.Amount = amount
	req.LastError = ""
	m.requests[nonce.String()] = req
	return nil
}

func (m *MemoryStore) RecordMintFailure(ctx context.Context, nonce *big.Int, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[nonce.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNonce, nonce)
	}
	req.LastError = cause
	m.requests[nonce.String()] = req
	return nil
}

func (m *MemoryStore) ListByStatus(ctx context.Context, status RequestStatus, limit int) ([]PendingRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PendingRequest
	for _, req := range m.requests {
		if req.Status != status {
			continue
		}
		out = append(out, req)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{TotalRequests: int64(len(m.requests))}
	for _, req := range m.requests {
		switch req.Status {
		case StatusPending:
			stats.PendingRequests++
		case StatusFulfilled:
			stats.FulfilledRequests++
		}
	}
	return stats, nil
}

// MockOracleClient scripts GenerateRequest responses and records call
// arguments for assertions.
type MockOracleClient struct {
	mu sync.Mutex

	// NextNonce is returned by the next GenerateRequest call.
	NextNonce *big.Int
	// Err, when set, fails every GenerateRequest call.
	Err error

	Calls []OracleCall
}

// OracleCall captures the arguments of one GenerateRequest invocation.
type OracleCall struct {
	CallbackSig      string
	RNGCount         uint8
	NumConfirmations *big.Int
	ClientWallet     common.Address
}

func (m *MockOracleClient) GenerateRequest(ctx context.Context, callbackSig string, rngCount uint8, numConfirmations *big.Int, clientWallet common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, OracleCall{
		CallbackSig:      callbackSig,
		RNGCount:         rngCount,
		NumConfirmations: numConfirmations,
		ClientWallet:     clientWallet,
	})
	if m.Err != nil {
		return nil, m.Err
	}
	return new(big.Int).Set(m.NextNonce), nil
}

// MockTokenMinter records Mint calls and can be scripted to fail.
type MockTokenMinter struct {
	mu sync.Mutex

	// Err, when set, fails every Mint call until cleared.
	Err error

	Calls []MintCall
}

// MintCall captures the arguments of one Mint invocation.
type MintCall struct {
	Account common.Address
	Value   *big.Int
}

func (m *MockTokenMinter) Mint(ctx context.Context, account common.Address, value *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MintCall{Account: account, Value: new(big.Int).Set(value)})
	return m.Err
}

// SetErr scripts the minter's failure mode.
func (m *MockTokenMinter) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// CaptureEmitter records emitted events for assertions.
type CaptureEmitter struct {
	mu        sync.Mutex
	Requested []MintRequested
	Minted    []Minted
}

func (c *CaptureEmitter) EmitMintRequested(ctx context.Context, event MintRequested) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requested = append(c.Requested, event)
}

func (c *CaptureEmitter) EmitMinted(ctx context.Context, event Minted) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Minted = append(c.Minted, event)
}
