package lottery

import "errors"

// Errors
var (
	// ErrRandomnessRequestFailed means the oracle request call did not
	// succeed. No state is committed when it is returned.
	ErrRandomnessRequestFailed = errors.New("randomness request failed")

	// ErrUnauthorizedCaller means a fulfillment was invoked by an address
	// other than the configured oracle.
	ErrUnauthorizedCaller = errors.New("caller is not the configured oracle")

	// ErrMalformedFulfillment means the fulfillment payload is missing the
	// expected random value.
	ErrMalformedFulfillment = errors.New("fulfillment payload missing random value")

	// ErrMintFailed means the token mint call did not succeed. The registry
	// entry for the nonce is intentionally left intact.
	ErrMintFailed = errors.New("token mint failed")

	// ErrUnknownNonce means no recipient is registered for the nonce.
	ErrUnknownNonce = errors.New("no request registered for nonce")

	// ErrAlreadyFulfilled means the nonce was already consumed by a
	// successful mint.
	ErrAlreadyFulfilled = errors.New("nonce already fulfilled")
)
