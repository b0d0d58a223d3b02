package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateRequestPacking(t *testing.T) {
	wallet := common.HexToAddress("0x2000000000000000000000000000000000000002")

	data, err := routerABI.Pack("generateRequest",
		"mintRandomAmount(uint256,uint256[])", uint8(1), big.NewInt(1), wallet)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	wantSelector := crypto.Keccak256([]byte("generateRequest(string,uint8,uint256,address)"))[:4]
	if len(data) < 4 {
		t.Fatalf("calldata too short: %d bytes", len(data))
	}
	for i := range wantSelector {
		if data[i] != wantSelector[i] {
			t.Fatalf("selector = %x, want %x", data[:4], wantSelector)
		}
	}
}

func TestMintPacking(t *testing.T) {
	account := common.HexToAddress("0x4000000000000000000000000000000000000004")

	data, err := tokenABI.Pack("mint", account, big.NewInt(8))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// selector + two 32-byte words
	if len(data) != 4+64 {
		t.Errorf("calldata length = %d, want 68", len(data))
	}

	args, err := tokenABI.Methods["mint"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got := args[0].(common.Address); got != account {
		t.Errorf("account = %s, want %s", got.Hex(), account.Hex())
	}
	if got := args[1].(*big.Int); got.Cmp(big.NewInt(8)) != 0 {
		t.Errorf("value = %s, want 8", got)
	}
}

func TestParseRequestNonce(t *testing.T) {
	nonce := big.NewInt(42)
	wallet := common.HexToAddress("0x2000000000000000000000000000000000000002")

	logs := []*types.Log{
		{
			// unrelated event, skipped
			Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
		},
		{
			Topics: []common.Hash{
				requestGeneratedTopic,
				common.BigToHash(nonce),
				common.BytesToHash(wallet.Bytes()),
			},
		},
	}

	got, err := parseRequestNonce(logs)
	if err != nil {
		t.Fatalf("parseRequestNonce: %v", err)
	}
	if got.Cmp(nonce) != 0 {
		t.Errorf("nonce = %s, want 42", got)
	}
}

func TestParseRequestNonceMissingEvent(t *testing.T) {
	if _, err := parseRequestNonce(nil); err == nil {
		t.Fatal("expected error for empty logs")
	}
}
