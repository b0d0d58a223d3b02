// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the full service configuration.
type Config struct {
	HTTP     HTTPConfig
	Chain    ChainConfig
	Store    StoreConfig
	Security SecurityConfig
	Sweep    SweepConfig
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	ListenAddr        string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	RequestsPerSecond int           `env:"HTTP_RATE_LIMIT_RPS,default=20"`
	RateLimitBurst    int           `env:"HTTP_RATE_LIMIT_BURST,default=40"`
	AllowedOrigins    []string      `env:"HTTP_ALLOWED_ORIGINS,default=*"`
}

// ChainConfig configures the EVM chain connection and contract addresses.
type ChainConfig struct {
	RPCURL              string        `env:"CHAIN_RPC_URL,required"`
	ChainID             int64         `env:"CHAIN_ID,required"`
	PrivateKeyHex       string        `env:"CHAIN_PRIVATE_KEY,required"`
	TokenAddress        string        `env:"CONTRACT_TOKEN_ADDRESS,required"`
	OracleAddress       string        `env:"CONTRACT_ORACLE_ADDRESS,required"`
	SubscriptionManager string        `env:"CONTRACT_SUBSCRIPTION_MANAGER,required"`
	TxWaitTimeout       time.Duration `env:"CHAIN_TX_WAIT_TIMEOUT,default=2m"`
	TxPollInterval      time.Duration `env:"CHAIN_TX_POLL_INTERVAL,default=2s"`
}

// StoreConfig configures request persistence.
type StoreConfig struct {
	// Backend selects the registry store: "postgres", "redis" or "memory".
	Backend     string `env:"STORE_BACKEND,default=postgres"`
	PostgresDSN string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
}

// SecurityConfig configures authentication on the fulfillment route.
type SecurityConfig struct {
	JWTPublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`
}

// SweepConfig configures the pending-request sweeper.
type SweepConfig struct {
	Schedule   string        `env:"SWEEP_SCHEDULE,default=@every 1m"`
	StaleAfter time.Duration `env:"SWEEP_STALE_AFTER,default=10m"`
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully populated already.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envdecode cannot express.
func (c *Config) Validate() error {
	for name, addr := range map[string]string{
		"CONTRACT_TOKEN_ADDRESS":        c.Chain.TokenAddress,
		"CONTRACT_ORACLE_ADDRESS":       c.Chain.OracleAddress,
		"CONTRACT_SUBSCRIPTION_MANAGER": c.Chain.SubscriptionManager,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: %q is not a valid address", name, addr)
		}
		if common.HexToAddress(addr) == (common.Address{}) {
			return fmt.Errorf("%s must not be the zero address", name)
		}
	}

	switch c.Store.Backend {
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND: unknown backend %q", c.Store.Backend)
	}

	return nil
}
