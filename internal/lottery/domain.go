// Package lottery implements randomness-backed token minting: a mint request
// obtains a nonce from the oracle router, and the oracle's fulfillment
// callback mints a bounded random amount to the registered recipient.
package lottery

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Oracle request parameters. The callback signature names the fulfillment
// entry point the router invokes; one random word after one confirmation.
const (
	CallbackSignature = "mintRandomAmount(uint256,uint256[])"
	RNGCount          = uint8(1)
	NumConfirmations  = int64(1)
)

// Config holds the three contract identities fixed at construction.
type Config struct {
	// TokenAddress is the ERC-20 contract whose mint entry point is invoked.
	TokenAddress common.Address
	// SubscriptionManager is the billing identity passed through to the oracle.
	SubscriptionManager common.Address
	// OracleAddress is the router the requests go to, and the only caller
	// allowed to deliver fulfillments.
	OracleAddress common.Address
}

// Validate rejects zero-valued contract addresses.
func (c Config) Validate() error {
	if c.TokenAddress == (common.Address{}) {
		return fmt.Errorf("token address must not be zero")
	}
	if c.SubscriptionManager == (common.Address{}) {
		return fmt.Errorf("subscription manager address must not be zero")
	}
	if c.OracleAddress == (common.Address{}) {
		return fmt.Errorf("oracle address must not be zero")
	}
	return nil
}

// RequestStatus is the lifecycle state of a mint request.
type RequestStatus string

const (
	// StatusPending means a nonce is registered and no mint has succeeded yet.
	StatusPending RequestStatus = "pending"
	// StatusFulfilled is terminal: the mint call succeeded.
	StatusFulfilled RequestStatus = "fulfilled"
)

// PendingRequest associates an oracle-assigned nonce with the recipient that
// should receive the mint when the matching fulfillment arrives.
type PendingRequest struct {
	Nonce     *big.Int       `json:"nonce"`
	Recipient common.Address `json:"recipient"`
	Status    RequestStatus  `json:"status"`

	// Amount is the derived mint amount, set once fulfilled.
	Amount *big.Int `json:"amount,omitempty"`

	// LastError records the most recent mint failure for this nonce. The
	// entry stays pending so an oracle redelivery can still succeed.
	LastError string `json:"last_error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	FulfilledAt time.Time `json:"fulfilled_at,omitempty"`
}

// Stats summarizes registry contents.
type Stats struct {
	TotalRequests     int64     `json:"total_requests"`
	PendingRequests   int64     `json:"pending_requests"`
	FulfilledRequests int64     `json:"fulfilled_requests"`
	GeneratedAt       time.Time `json:"generated_at"`
}
