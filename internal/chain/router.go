package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RouterClient submits randomness requests to the oracle router contract.
type RouterClient struct {
	client *Client
	router common.Address
}

// NewRouterClient creates a client bound to the router contract address.
func NewRouterClient(client *Client, router common.Address) *RouterClient {
	return &RouterClient{client: client, router: router}
}

// GenerateRequest calls generateRequest on the router and returns the
// oracle-assigned nonce from the transaction's RequestGenerated event.
func (r *RouterClient) GenerateRequest(ctx context.Context, callbackSig string, rngCount uint8, numConfirmations *big.Int, clientWallet common.Address) (*big.Int, error) {
	data, err := routerABI.Pack("generateRequest", callbackSig, rngCount, numConfirmations, clientWallet)
	if err != nil {
		return nil, fmt.Errorf("pack generateRequest: %w", err)
	}

	receipt, err := r.client.Transact(ctx, r.router, data)
	if err != nil {
		return nil, fmt.Errorf("generateRequest: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("generateRequest reverted in tx %s", receipt.TxHash.Hex())
	}

	nonce, err := parseRequestNonce(receipt.Logs)
	if err != nil {
		return nil, fmt.Errorf("tx %s: %w", receipt.TxHash.Hex(), err)
	}
	return nonce, nil
}
