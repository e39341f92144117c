package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"puppet-server/internal/config"
	"puppet-server/internal/gateway"
	"puppet-server/internal/hub"
	"puppet-server/internal/llm"
	"puppet-server/internal/middleware"
	"puppet-server/internal/relay"
	"puppet-server/internal/server"
	"puppet-server/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	gin.SetMode(cfg.GinMode)

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithError(err).Error("close store")
		}
	}()

	var local llm.Provider
	if cfg.LocalModelURL != "" {
		lm, err := llm.NewLocalModel(llm.LocalOptions{BaseURL: cfg.LocalModelURL, Model: cfg.LocalModelName})
		if err != nil {
			return err
		}
		warmCtx, cancel := context.WithTimeout(ctx, cfg.CompletionTimeout)
		if err := lm.Warm(warmCtx); err != nil {
			logger.WithError(err).Warn("local model not ready")
		}
		cancel()
		local = lm
	} else {
		logger.Warn("LOCAL_MODEL_URL not set, local model requests will fail")
	}

	wsHub := hub.New()
	registerLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer registerLimiter.Stop()
	completionLimiter := middleware.NewRateLimiter(60, time.Minute)
	defer completionLimiter.Stop()

	router := server.NewRouter(server.Deps{
		Relay: relay.New(relay.Options{Store: st, Publisher: wsHub, Logger: logger}),
		Gateway: gateway.New(gateway.Options{
			Store:     st,
			Catalog:   gateway.NewCatalog(cfg.Models),
			Hosted:    llm.NewHosted(cfg.OpenAIBaseURL, &http.Client{}),
			Local:     local,
			Timeout:   cfg.CompletionTimeout,
			MaxTokens: cfg.MaxTokens,
			Logger:    logger,
		}),
		Hub:               wsHub,
		TokenConfig:       tokenConfig(cfg),
		Logger:            logger,
		RegisterLimiter:   registerLimiter,
		CompletionLimiter: completionLimiter,
	})

	return server.Run(ctx, cfg, router, logger)
}

// openStore picks postgres, then sqlite, then the in-memory store.
func openStore(cfg config.Config, logger logrus.FieldLogger) (store.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		logger.Info("using postgres store")
		return openSQL(store.SQLOptions{PostgresDSN: cfg.DatabaseURL, Logger: logger})
	case cfg.SQLitePath != "":
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite store")
		return openSQL(store.SQLOptions{SQLitePath: cfg.SQLitePath, Logger: logger})
	default:
		logger.WithField("state_file", cfg.StateFile).Info("using memory store")
		return store.NewMemoryWithOptions(store.Options{StateFile: cfg.StateFile, Logger: logger}), nil
	}
}

func openSQL(opts store.SQLOptions) (store.Store, error) {
	st, err := store.OpenSQL(opts)
	if err != nil {
		return nil, err
	}
	return st, nil
}
