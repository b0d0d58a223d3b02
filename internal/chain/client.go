// Package chain provides EVM contract interaction for the lottery token
// service: randomness requests to the oracle router and token mint calls.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/randworks/lottery_token/internal/logging"
)

// DefaultTxWaitTimeout is the default timeout for waiting for transaction
// inclusion.
const DefaultTxWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the default interval for polling receipt status.
const DefaultPollInterval = 2 * time.Second

// Config holds client configuration.
type Config struct {
	RPCURL        string
	ChainID       *big.Int
	PrivateKeyHex string

	TxWaitTimeout time.Duration
	PollInterval  time.Duration
}

// Client sends signed transactions from a single key and waits for receipts.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
	signer  types.Signer

	waitTimeout  time.Duration
	pollInterval time.Duration

	log *logging.Logger
}

// NewClient dials the RPC endpoint and prepares the signing key.
func NewClient(ctx context.Context, cfg Config, log *logging.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain ID required")
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	waitTimeout := cfg.TxWaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultTxWaitTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if log == nil {
		log = logging.NewDefault("chain")
	}

	return &Client{
		eth:          eth,
		chainID:      cfg.ChainID,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		signer:       types.LatestSignerForChainID(cfg.ChainID),
		waitTimeout:  waitTimeout,
		pollInterval: pollInterval,
		log:          log,
	}, nil
}

// From returns the sender address derived from the signing key.
func (c *Client) From() common.Address {
	return c.from
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Transact signs and broadcasts a contract call and waits for its receipt.
func (c *Client) Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	c.log.WithContext(ctx).
		WithField("tx", signed.Hash().Hex()).
		WithField("to", to.Hex()).
		Debug("transaction broadcast")

	wctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	return c.WaitForReceipt(wctx, signed.Hash())
}

// WaitForReceipt polls for a transaction receipt until it is available or the
// context is done. A not-yet-found transaction is transient and retried.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
			receipt, err := c.eth.TransactionReceipt(ctx, txHash)
			if err != nil {
				if err == ethereum.NotFound {
					continue
				}
				return nil, fmt.Errorf("receipt for %s: %w", txHash.Hex(), err)
			}
			return receipt, nil
		}
	}
}
