package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TokenClient invokes the token contract's mint entry point.
type TokenClient struct {
	client *Client
	token  common.Address
}

// NewTokenClient creates a client bound to the token contract address.
func NewTokenClient(client *Client, token common.Address) *TokenClient {
	return &TokenClient{client: client, token: token}
}

// Mint mints value tokens to the account. A reverted transaction is an error.
func (t *TokenClient) Mint(ctx context.Context, account common.Address, value *big.Int) error {
	data, err := tokenABI.Pack("mint", account, value)
	if err != nil {
		return fmt.Errorf("pack mint: %w", err)
	}

	receipt, err := t.client.Transact(ctx, t.token, data)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("mint reverted in tx %s", receipt.TxHash.Hex())
	}
	return nil
}
