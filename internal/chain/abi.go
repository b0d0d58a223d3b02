package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// Oracle router interface: generateRequest submits a randomness request and
// the router logs the assigned nonce in a RequestGenerated event.
const routerABIJSON = `[
	{
		"type": "function",
		"name": "generateRequest",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "_functionSig", "type": "string"},
			{"name": "_rngCount", "type": "uint8"},
			{"name": "_numConfirmations", "type": "uint256"},
			{"name": "_clientWalletAddress", "type": "address"}
		],
		"outputs": [
			{"name": "nonce", "type": "uint256"}
		]
	},
	{
		"type": "event",
		"name": "RequestGenerated",
		"inputs": [
			{"name": "nonce", "type": "uint256", "indexed": true},
			{"name": "clientWalletAddress", "type": "address", "indexed": true},
			{"name": "functionSig", "type": "string", "indexed": false}
		],
		"anonymous": false
	}
]`

// Token interface: only the mint entry point is used.
const tokenABIJSON = `[
	{
		"type": "function",
		"name": "mint",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"outputs": []
	}
]`

var (
	routerABI = mustParseABI(routerABIJSON)
	tokenABI  = mustParseABI(tokenABIJSON)

	requestGeneratedTopic = routerABI.Events["RequestGenerated"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: bad ABI: " + err.Error())
	}
	return parsed
}

// parseRequestNonce extracts the oracle-assigned nonce from a RequestGenerated
// log. The nonce is the first indexed topic.
func parseRequestNonce(logs []*types.Log) (*big.Int, error) {
	for _, entry := range logs {
		if len(entry.Topics) < 2 || entry.Topics[0] != requestGeneratedTopic {
			continue
		}
		return new(big.Int).SetBytes(entry.Topics[1].Bytes()), nil
	}
	return nil, fmt.Errorf("no RequestGenerated event in receipt")
}
