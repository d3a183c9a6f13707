package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/policy-llm-gateway/internal/audit"
	"github.com/tjfontaine/policy-llm-gateway/internal/config"
	"github.com/tjfontaine/policy-llm-gateway/internal/gateway"
	"github.com/tjfontaine/policy-llm-gateway/internal/limiter"
	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
	"github.com/tjfontaine/policy-llm-gateway/internal/server"
	"github.com/tjfontaine/policy-llm-gateway/internal/telemetry"
	"github.com/tjfontaine/policy-llm-gateway/internal/tokens"
)

func main() {
	// Load .env if present; real environment always wins
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown, err := telemetry.InitTracer("policy-gateway", logger)
	if err != nil {
		logger.Error("failed to init tracer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	policies, err := policy.Open(cfg.Policy.Path)
	if err != nil {
		logger.Error("failed to load policies",
			slog.String("path", cfg.Policy.Path),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := limiter.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("failed to connect to shared store",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var sink audit.Sink
	switch cfg.Audit.Type {
	case "sqlite":
		sink, err = audit.NewSQLiteSink(cfg.Audit.Path)
	default:
		sink, err = audit.NewFileSink(cfg.Audit.Path, logger)
	}
	if err != nil {
		logger.Error("failed to open audit sink",
			slog.String("path", cfg.Audit.Path),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sink.Close()

	gw := gateway.New(
		logger,
		policies,
		limiter.NewRateLimiter(store),
		limiter.NewQuotaManager(store),
		tokens.NewEstimator(),
		sink,
	)

	srv := server.New(cfg.Server.Port, logger)
	gw.Register(srv.Router)

	if err := srv.Start(); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
