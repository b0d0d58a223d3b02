package httpapi

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/randworks/lottery_token/internal/httputil"
	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/lottery"
	"github.com/randworks/lottery_token/internal/metrics"
	"github.com/randworks/lottery_token/internal/middleware"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr string

	// JWTPublicKey enables bearer authentication on the API routes when set.
	// Health and metrics stay open either way.
	JWTPublicKey *rsa.PublicKey

	RateLimitPerSecond int
	RateLimitBurst     int

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end of the lottery token service.
type Server struct {
	cfg     ServerConfig
	httpSrv *http.Server
	logger  *logging.Logger
}

// NewServer assembles the router and middleware chain.
func NewServer(cfg ServerConfig, service *lottery.Service, meter *metrics.Metrics, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefault("httpapi")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if meter != nil {
		router.Handle("/metrics", meter.Handler()).Methods(http.MethodGet)
		router.Use(middleware.MetricsMiddleware(meter))
	}

	router.Use(middleware.NewTracingMiddleware(logger).Handler)
	router.Use(middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, logger)
	limiter.StartCleanup(10 * time.Minute)
	router.Use(limiter.Handler)

	if cfg.JWTPublicKey != nil {
		auth := middleware.NewAuthMiddleware(cfg.JWTPublicKey, logger, []string{"/health", "/metrics"})
		router.Use(auth.Handler)
	}

	NewHandler(service, logger).Register(router)

	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.cfg.ListenAddr).Info("http server listening")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(sctx)
}
