package lottery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/metrics"
)

// Service orchestrates the mint request and fulfillment paths.
type Service struct {
	cfg    Config
	store  Store
	oracle OracleClient
	minter TokenMinter
	events EventEmitter
	meter  *metrics.Metrics
	log    *logging.Logger
}

// New constructs the minting service. The configuration addresses are fixed
// for the lifetime of the service.
func New(cfg Config, store Store, oracle OracleClient, minter TokenMinter, log *logging.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = logging.NewDefault("lottery")
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		oracle: oracle,
		minter: minter,
		events: NewLogEmitter(log),
		log:    log,
	}, nil
}

// WithEvents sets the event emitter.
func (s *Service) WithEvents(events EventEmitter) {
	s.events = events
}

// WithMetrics sets the metrics collector.
func (s *Service) WithMetrics(meter *metrics.Metrics) {
	s.meter = meter
}

// Config returns the immutable service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// MintTo requests randomness from the oracle and registers the recipient
// under the returned nonce. On oracle failure no state is created and no
// event is emitted.
func (s *Service) MintTo(ctx context.Context, recipient common.Address) (PendingRequest, error) {
	nonce, err := s.oracle.GenerateRequest(
		ctx,
		CallbackSignature,
		RNGCount,
		big.NewInt(NumConfirmations),
		s.cfg.SubscriptionManager,
	)
	if err != nil {
		s.recordMintRequest("failed")
		s.log.WithContext(ctx).WithError(err).Warn("oracle request failed")
		return PendingRequest{}, fmt.Errorf("%w: %v", ErrRandomnessRequestFailed, err)
	}

	req := PendingRequest{
		Nonce:     nonce,
		Recipient: recipient,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		s.recordMintRequest("failed")
		return PendingRequest{}, fmt.Errorf("register request %s: %w", nonce, err)
	}

	s.events.EmitMintRequested(ctx, MintRequested{Nonce: nonce, Recipient: recipient})
	s.recordMintRequest("submitted")
	s.log.WithContext(ctx).
		WithField("nonce", nonce.String()).
		WithField("recipient", recipient.Hex()).
		Info("randomness requested")

	return req, nil
}

// MintRandomAmount handles the oracle's fulfillment callback: it authorizes
// the caller, derives the mint amount from the first random value, and mints
// it to the recipient registered under the nonce.
//
// The caller check runs before any state read, mutation, or external call.
func (s *Service) MintRandomAmount(ctx context.Context, caller common.Address, nonce *big.Int, randomValues []*big.Int) (PendingRequest, error) {
	start := time.Now()

	if err := authorizeCaller(caller, s.cfg.OracleAddress); err != nil {
		if s.meter != nil {
			s.meter.RecordUnauthorizedFulfillment()
		}
		s.recordFulfillment("unauthorized", start)
		s.log.WithContext(ctx).
			WithField("caller", caller.Hex()).
			WithField("nonce", nonce.String()).
			Warn("fulfillment from unauthorized caller")
		return PendingRequest{}, err
	}

	if len(randomValues) == 0 || randomValues[0] == nil {
		s.recordFulfillment("malformed", start)
		return PendingRequest{}, fmt.Errorf("%w: nonce %s", ErrMalformedFulfillment, nonce)
	}

	req, err := s.store.GetRequest(ctx, nonce)
	if err != nil {
		s.recordFulfillment("unknown_nonce", start)
		return PendingRequest{}, fmt.Errorf("lookup nonce %s: %w", nonce, err)
	}
	if req.Status == StatusFulfilled {
		s.recordFulfillment("replay", start)
		return PendingRequest{}, fmt.Errorf("%w: nonce %s", ErrAlreadyFulfilled, nonce)
	}

	amount := MintAmount(randomValues[0])

	if err := s.minter.Mint(ctx, req.Recipient, amount); err != nil {
		// The registry entry stays pending on purpose: a redelivered
		// fulfillment for this nonce can still succeed later.
		if storeErr := s.store.RecordMintFailure(ctx, nonce, err.Error()); storeErr != nil {
			s.log.WithContext(ctx).WithError(storeErr).Warn("failed to record mint failure")
		}
		s.recordFulfillment("mint_failed", start)
		s.log.WithContext(ctx).
			WithError(err).
			WithField("nonce", nonce.String()).
			WithField("recipient", req.Recipient.Hex()).
			Error("token mint failed")
		return PendingRequest{}, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}

	if err := s.store.MarkFulfilled(ctx, nonce, amount); err != nil {
		// The mint already happened; surface the bookkeeping failure but do
		// not pretend the fulfillment failed.
		s.log.WithContext(ctx).WithError(err).WithField("nonce", nonce.String()).
			Error("failed to mark request fulfilled")
	}

	req.Status = StatusFulfilled
	req.Amount = amount
	req.FulfilledAt = time.Now().UTC()

	s.events.EmitMinted(ctx, Minted{Nonce: nonce, Recipient: req.Recipient, Amount: amount})
	s.recordFulfillment("minted", start)
	s.log.WithContext(ctx).
		WithField("nonce", nonce.String()).
		WithField("recipient", req.Recipient.Hex()).
		WithField("amount", amount.String()).
		Info("mint fulfilled")

	return req, nil
}

// GetRequest retrieves the registry entry for a nonce.
func (s *Service) GetRequest(ctx context.Context, nonce *big.Int) (PendingRequest, error) {
	return s.store.GetRequest(ctx, nonce)
}

// Stats returns registry statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.GeneratedAt = time.Now().UTC()
	return stats, nil
}

// authorizeCaller fails with ErrUnauthorizedCaller unless the caller is the
// configured oracle.
func authorizeCaller(caller, oracle common.Address) error {
	if caller != oracle {
		return fmt.Errorf("%w: %s", ErrUnauthorizedCaller, caller.Hex())
	}
	return nil
}

func (s *Service) recordMintRequest(outcome string) {
	if s.meter != nil {
		s.meter.RecordMintRequest(outcome)
	}
}

func (s *Service) recordFulfillment(outcome string, start time.Time) {
	if s.meter != nil {
		s.meter.RecordFulfillment(outcome, time.Since(start))
	}
}
