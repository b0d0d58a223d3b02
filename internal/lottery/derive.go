package lottery

import "math/big"

// MintRangeDecimal is the size of the mint amount interval: amounts fall in
// [1, 10^21], i.e. between 1 and 1,000 whole tokens at 18 decimals.
const MintRangeDecimal = "1000000000000000000000"

var mintRange = mustBig(MintRangeDecimal)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("lottery: bad integer literal " + s)
	}
	return v
}

// MintAmount derives the mint amount from a raw random value:
// (random mod 10^21) + 1. The function is total and deterministic; inputs
// are unsigned 256-bit values and the arithmetic never overflows.
func MintAmount(random *big.Int) *big.Int {
	amount := new(big.Int).Mod(random, mintRange)
	return amount.Add(amount, big.NewInt(1))
}
