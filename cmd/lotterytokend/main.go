// Package main runs the lottery token service: it accepts mint requests,
// forwards them to the randomness oracle, and mints random token amounts to
// registered recipients when fulfillments arrive.
package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"

	"github.com/randworks/lottery_token/internal/chain"
	"github.com/randworks/lottery_token/internal/config"
	"github.com/randworks/lottery_token/internal/httpapi"
	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/lottery"
	"github.com/randworks/lottery_token/internal/metrics"
	"github.com/randworks/lottery_token/internal/store"
)

const serviceName = "lottery-token"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{Service: serviceName, Level: cfg.LogLevel})
	meter := metrics.New(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chain clients for the oracle router and the token contract.
	chainClient, err := chain.NewClient(ctx, chain.Config{
		RPCURL:        cfg.Chain.RPCURL,
		ChainID:       big.NewInt(cfg.Chain.ChainID),
		PrivateKeyHex: cfg.Chain.PrivateKeyHex,
		TxWaitTimeout: cfg.Chain.TxWaitTimeout,
		PollInterval:  cfg.Chain.TxPollInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}
	defer chainClient.Close()

	oracle := chain.NewRouterClient(chainClient, common.HexToAddress(cfg.Chain.OracleAddress))
	minter := chain.NewTokenClient(chainClient, common.HexToAddress(cfg.Chain.TokenAddress))

	registry, cleanup, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	service, err := lottery.New(lottery.Config{
		TokenAddress:        common.HexToAddress(cfg.Chain.TokenAddress),
		SubscriptionManager: common.HexToAddress(cfg.Chain.SubscriptionManager),
		OracleAddress:       common.HexToAddress(cfg.Chain.OracleAddress),
	}, registry, oracle, minter, logger)
	if err != nil {
		return fmt.Errorf("lottery service: %w", err)
	}
	service.WithMetrics(meter)

	sweeper := lottery.NewSweeper(registry, meter, logger)
	sweeper.WithSchedule(cfg.Sweep.Schedule)
	sweeper.WithStaleAfter(cfg.Sweep.StaleAfter)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	jwtKey, err := loadJWTPublicKey(cfg.Security.JWTPublicKeyPath)
	if err != nil {
		return fmt.Errorf("load JWT public key: %w", err)
	}
	if jwtKey == nil {
		logger.Warn("JWT_PUBLIC_KEY_PATH not set; API authentication disabled")
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		ListenAddr:         cfg.HTTP.ListenAddr,
		JWTPublicKey:       jwtKey,
		RateLimitPerSecond: cfg.HTTP.RequestsPerSecond,
		RateLimitBurst:     cfg.HTTP.RateLimitBurst,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
	}, service, meter, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func openStore(ctx context.Context, cfg config.StoreConfig) (lottery.Store, func(), error) {
	switch cfg.Backend {
	case "postgres":
		s, err := store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		s, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return lottery.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func loadJWTPublicKey(path string) (*rsa.PublicKey, error) {
	if path == "" {
		return nil, nil
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pemBytes)
}
