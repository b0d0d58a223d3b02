package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-redis/redis/v8"

	"github.com/randworks/lottery_token/internal/lottery"
)

const (
	requestKeyPrefix = "lottery:request:"
	pendingSetKey    = "lottery:pending"
	fulfilledSetKey  = "lottery:fulfilled"
)

// RedisStore implements lottery.Store on Redis. Requests are JSON values
// keyed by nonce, with per-status index sets for listing and stats.
type RedisStore struct {
	client *redis.Client
}

var _ lottery.Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis using the given URL
// (redis://[user:pass@]host:port/db).
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func requestKey(nonce string) string {
	return requestKeyPrefix + nonce
}

func statusSetKey(status lottery.RequestStatus) string {
	if status == lottery.StatusFulfilled {
		return fulfilledSetKey
	}
	return pendingSetKey
}

func (s *RedisStore) CreateRequest(ctx context.Context, req lottery.PendingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	nonce := req.Nonce.String()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, requestKey(nonce), payload, 0)
	pipe.SRem(ctx, fulfilledSetKey, nonce)
	pipe.SAdd(ctx, pendingSetKey, nonce)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetRequest(ctx context.Context, nonce *big.Int) (lottery.PendingRequest, error) {
	payload, err := s.client.Get(ctx, requestKey(nonce.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return lottery.PendingRequest{}, fmt.Errorf("%w: %s", lottery.ErrUnknownNonce, nonce)
	}
	if err != nil {
		return lottery.PendingRequest{}, err
	}

	var req lottery.PendingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return lottery.PendingRequest{}, fmt.Errorf("decode request %s: %w", nonce, err)
	}
	return req, nil
}

func (s *RedisStore) MarkFulfilled(ctx context.Context, nonce *big.Int, amount *big.Int) error {
	return s.update(ctx, nonce, func(req *lottery.PendingRequest) {
		req.Status = lottery.StatusFulfilled
		req.Amount = amount
		req.LastError = ""
	})
}

func (s *RedisStore) RecordMintFailure(ctx context.Context, nonce *big.Int, cause string) error {
	return s.update(ctx, nonce, func(req *lottery.PendingRequest) {
		req.LastError = cause
	})
}

func (s *RedisStore) update(ctx context.Context, nonce *big.Int, apply func(*lottery.PendingRequest)) error {
	req, err := s.GetRequest(ctx, nonce)
	if err != nil {
		return err
	}
	apply(&req)

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	key := nonce.String()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, requestKey(key), payload, 0)
	if req.Status == lottery.StatusFulfilled {
		pipe.SRem(ctx, pendingSetKey, key)
		pipe.SAdd(ctx, fulfilledSetKey, key)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListByStatus(ctx context.Context, status lottery.RequestStatus, limit int) ([]lottery.PendingRequest, error) {
	nonces, err := s.client.SMembers(ctx, statusSetKey(status)).Result()
	if err != nil {
		return nil, err
	}

	var result []lottery.PendingRequest
	for _, nonce := range nonces {
		if limit > 0 && len(result) >= limit {
			break
		}
		payload, err := s.client.Get(ctx, requestKey(nonce)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var req lottery.PendingRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode request %s: %w", nonce, err)
		}
		result = append(result, req)
	}
	return result, nil
}

func (s *RedisStore) Stats(ctx context.Context) (lottery.Stats, error) {
	pipe := s.client.Pipeline()
	pending := pipe.SCard(ctx, pendingSetKey)
	fulfilled := pipe.SCard(ctx, fulfilledSetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return lottery.Stats{}, err
	}

	stats := lottery.Stats{
		PendingRequests:   pending.Val(),
		FulfilledRequests: fulfilled.Val(),
	}
	stats.TotalRequests = stats.PendingRequests + stats.FulfilledRequests
	return stats, nil
}
