package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	"github.com/zhouzirui/aquaguard/backend/internal/config"
	"github.com/zhouzirui/aquaguard/backend/internal/handler"
	"github.com/zhouzirui/aquaguard/backend/internal/handler/voice"
	"github.com/zhouzirui/aquaguard/backend/internal/metrics"
	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
	"github.com/zhouzirui/aquaguard/backend/internal/observability"
	"github.com/zhouzirui/aquaguard/backend/internal/service/assistant"
	"github.com/zhouzirui/aquaguard/backend/internal/service/chat"
	"github.com/zhouzirui/aquaguard/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			logger.Fatal("failed to register metrics", zap.Error(err))
		}
		gatherer = prometheus.DefaultGatherer
	}

	store := knowledge.NewMemoryStore(knowledge.Seed())
	matcher, err := intent.NewMatcher(store.List())
	if err != nil {
		logger.Fatal("invalid knowledge base", zap.Error(err))
	}

	assistantSvc, err := assistant.NewService(ctx, matcher, logger.Named("assistant"))
	if err != nil {
		logger.Fatal("failed to build assistant pipeline", zap.Error(err))
	}
	chatSvc := chat.NewService(assistantSvc, logger.Named("chat"))

	// Initialize Speech service
	var speechSvc voice.SpeechService
	if cfg.Speech.Enabled() {
		speechSvc = speech.NewService(cfg.Speech.Model(), logger.Named("speech"))
		logger.Info("speech service initialized", zap.String("language", cfg.Speech.ASRLanguage))
	} else {
		logger.Warn("speech credentials not configured, voice input disabled")
	}

	router := handler.NewRouter(handler.Dependencies{
		Knowledge:  store,
		Chat:       chatSvc,
		Speech:     speechSvc,
		MaxCapture: cfg.Voice.MaxCapture,
		Metrics:    gatherer,
		Logger:     logger.Named("http"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("AquaGuard assistant backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
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
