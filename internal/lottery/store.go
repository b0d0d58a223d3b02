package lottery

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Store defines the persistence interface for the nonce → recipient registry.
// Implementations must return ErrUnknownNonce for absent entries; a zero
// recipient is never a valid "not found" signal.
type Store interface {
	// CreateRequest registers a pending request, overwriting any prior entry
	// for the nonce. Nonces are oracle-assigned and presumed unique.
	CreateRequest(ctx context.Context, req PendingRequest) error

	// GetRequest returns the request for a nonce, or ErrUnknownNonce.
	GetRequest(ctx context.Context, nonce *big.Int) (PendingRequest, error)

	// MarkFulfilled transitions a request to the terminal fulfilled state,
	// recording the minted amount.
	MarkFulfilled(ctx context.Context, nonce *big.Int, amount *big.Int) error

	// RecordMintFailure notes a failed mint attempt. The request stays
	// pending so an oracle redelivery can still succeed.
	RecordMintFailure(ctx context.Context, nonce *big.Int, cause string) error

	// ListByStatus returns up to limit requests in the given state.
	ListByStatus(ctx context.Context, status RequestStatus, limit int) ([]PendingRequest, error)

	// Stats summarizes registry contents.
	Stats(ctx context.Context) (Stats, error)
}

// OracleClient issues randomness requests to the external oracle router.
type OracleClient interface {
	// GenerateRequest asks the oracle for randomness, naming the callback
	// signature and confirmation parameters, and returns the oracle-assigned
	// nonce.
	GenerateRequest(ctx context.Context, callbackSig string, rngCount uint8, numConfirmations *big.Int, clientWallet common.Address) (*big.Int, error)
}

// TokenMinter invokes the external token contract's mint entry point.
type TokenMinter interface {
	Mint(ctx context.Context, account common.Address, value *big.Int) error
}
