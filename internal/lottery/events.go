package lottery

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/randworks/lottery_token/internal/logging"
)

// MintRequested is emitted when a randomness request has been submitted and
// its nonce registered.
type MintRequested struct {
	Nonce     *big.Int       `json:"nonce"`
	Recipient common.Address `json:"recipient"`
}

// Minted is emitted when a fulfillment resulted in a successful mint.
type Minted struct {
	Nonce     *big.Int       `json:"nonce"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
}

// EventEmitter publishes mint lifecycle notifications. Emission is
// append-only; emitters must not fail the operation that produced the event.
type EventEmitter interface {
	EmitMintRequested(ctx context.Context, event MintRequested)
	EmitMinted(ctx context.Context, event Minted)
}

// LogEmitter publishes events to the structured log.
type LogEmitter struct {
	log *logging.Logger
}

// NewLogEmitter creates an emitter writing to the given logger.
func NewLogEmitter(log *logging.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

// EmitMintRequested logs a MintRequested event.
func (e *LogEmitter) EmitMintRequested(ctx context.Context, event MintRequested) {
	e.log.WithContext(ctx).WithFields(map[string]interface{}{
		"event":     "MintRequested",
		"nonce":     event.Nonce.String(),
		"recipient": event.Recipient.Hex(),
	}).Info("mint requested")
}

// EmitMinted logs a Minted event.
func (e *LogEmitter) EmitMinted(ctx context.Context, event Minted) {
	e.log.WithContext(ctx).WithFields(map[string]interface{}{
		"event":     "Minted",
		"nonce":     event.Nonce.String(),
		"recipient": event.Recipient.Hex(),
		"amount":    event.Amount.String(),
	}).Info("minted")
}
