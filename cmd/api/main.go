package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/twinchat/backend/internal/config"
	"github.com/zhouzirui/twinchat/backend/internal/handler"
	"github.com/zhouzirui/twinchat/backend/internal/handler/status"
	"github.com/zhouzirui/twinchat/backend/internal/logger"
	"github.com/zhouzirui/twinchat/backend/internal/metrics"
	"github.com/zhouzirui/twinchat/backend/internal/model/persona"
	"github.com/zhouzirui/twinchat/backend/internal/service/ai"
	"github.com/zhouzirui/twinchat/backend/internal/service/auth"
	"github.com/zhouzirui/twinchat/backend/internal/service/chat"
	"github.com/zhouzirui/twinchat/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	rootLog := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if envErr != nil {
		rootLog.Warn().Err(envErr).Msg("no .env file loaded, continuing with system environment variables only")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 人设资料在启动时预热一次；失败时保留懒加载，请求时重试。
	personaStore := persona.NewDirStore(cfg.Resources.Dir, logger.Component(rootLog, "persona"))
	if _, err := personaStore.Load(ctx); err != nil {
		rootLog.Warn().Err(err).Str("dir", cfg.Resources.Dir).Msg("persona resources not loaded yet")
	}

	store, err := storage.New(ctx, cfg.Storage, m, logger.Component(rootLog, "storage"))
	if err != nil {
		rootLog.Fatal().Err(err).Msg("failed to initialize conversation store")
	}

	// Initialize AI service
	var responder chat.Responder
	if cfg.AI.Enabled() {
		aiService, err := newAIService(ctx, cfg.AI, personaStore, logger.Component(rootLog, "ai"))
		if err != nil {
			rootLog.Warn().Err(err).Msg("failed to initialize AI service, continuing without AI functionality")
		} else {
			responder = aiService
			rootLog.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	} else {
		rootLog.Warn().Str("provider", cfg.AI.Provider).Msg("API key not configured, chat turns will fail until it is set")
	}

	chatService := chat.NewService(store, responder, logger.Component(rootLog, "chat"), chat.WithMetrics(m))

	gate := auth.NewGate(cfg.Auth.PasswordHash, logger.Component(rootLog, "auth"), m)
	if !gate.Configured() {
		rootLog.Warn().Msg("CHAT_PASSWORD_HASH not set, password validation will report unavailable")
	}

	router := handler.NewRouter(handler.Options{
		Personas: personaStore,
		Chat:     chatService,
		Gate:     gate,
		Status: status.Report{
			AIConfigured:       chatService.Available(),
			Provider:           cfg.AI.Provider,
			Model:              cfg.AI.Model,
			PasswordConfigured: gate.Configured(),
			StorageBackend:     store.Backend(),
			StrictReads:        cfg.Storage.StrictReads,
			DebugErrors:        cfg.Server.DebugErrors,
		},
		DebugErrors: cfg.Server.DebugErrors,
		Logger:      logger.Component(rootLog, "http"),
		Metrics:     m,
		Gatherer:    registry,
	})

	startServer(ctx, cfg.Server, router, rootLog)
}

func newAIService(ctx context.Context, cfg config.AIConfig, personas persona.Store, log zerolog.Logger) (*ai.Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	return ai.NewService(ctx, chatModel, ai.NewPromptBuilder(personas), cfg, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("twinchat backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
