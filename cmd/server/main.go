package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/config"
	"github.com/windfall/drill_service/internal/enrich"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/handler/http"
	"github.com/windfall/drill_service/internal/logger"
	"github.com/windfall/drill_service/internal/media"
	"github.com/windfall/drill_service/internal/repository"
	"github.com/windfall/drill_service/internal/server"
	"github.com/windfall/drill_service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Msg("Starting drill_service")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]http.Pinger{}

	// Audio storage
	audioStore, audioDir, closeStore, err := buildAudioStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.AudioStore).Msg("Failed to initialize audio store")
	}
	defer closeStore()

	// Model providers
	prov, err := buildProviders(ctx, cfg, audioStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize providers")
	}

	// Initialize Redis client
	var redisClient *client.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			if cfg.FreshnessBackend == "redis" {
				log.Fatal().Err(err).Msg("Failed to initialize Redis client")
			}
			log.Error().Err(err).Msg("Failed to initialize Redis client")
		} else {
			log.Info().Msg("Redis client initialized")
			checks["redis"] = redisClient
		}
	}

	// Initialize Postgres client
	var repo repository.GenerationRepository = repository.NewInMemoryGenerationRepository(repository.MaxListLimit)
	var postgresClient *client.PostgresClient
	if cfg.DatabaseURL != "" {
		postgresClient, err = client.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Postgres client, keeping history in memory")
		} else {
			log.Info().Msg("Postgres client initialized")
			repo = repository.NewPostgresGenerationRepository(postgresClient)
			checks["postgres"] = postgresClient
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, keeping history in memory")
	}

	// Initialize Pub/Sub publisher
	var publisher service.EventPublisher
	var pubsubClient *client.PubSubClient
	if cfg.PubSubEnabled() {
		pubsubClient, err = client.NewPubSubClient(ctx, cfg.PubSubProjectID, cfg.PubSubTopic)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Pub/Sub client, events disabled")
		} else {
			log.Info().Str("topic", cfg.PubSubTopic).Msg("Pub/Sub client initialized")
			publisher = pubsubClient
		}
	}

	// Initialize services
	historyService := service.NewHistoryService(repo, publisher, log)
	deps := exercise.Deps{
		LLM: prov.llm,
		Fanout: enrich.New(prov.tts, audioStore, enrich.Options{
			TaskTimeout: cfg.EnrichTaskTimeout,
			Concurrency: cfg.EnrichConcurrency,
		}, log),
		Stores:    storeFactory(cfg, redisClient),
		Capacity:  cfg.FreshnessCapacity,
		Observers: []exercise.Observer{historyService},
		Log:       log,
	}
	evaluator := exercise.NewEvaluator(prov.llm, prov.stt, log)

	readingService := service.NewReadingService(deps, prov.images, service.ImageOptions{
		Size:    cfg.ImageSize,
		Quality: cfg.ImageQuality,
	}, log)
	presentationService := service.NewPresentationService(deps, evaluator, log)
	speakingService := service.NewSpeakingService(deps, evaluator, log)
	adultService := service.NewAdultService(deps, evaluator, log)
	writingService := service.NewWritingService(deps, evaluator, log)

	var verifier service.TokenVerifier
	if cfg.AuthBackendURL != "" {
		verifier = client.NewAuthClient(cfg.AuthBackendURL, cfg.AuthTimeout)
	} else {
		log.Warn().Msg("AUTH_BACKEND_URL not set, only the bypass token can authenticate")
	}
	authService := service.NewAuthService(verifier, cfg.AuthBypassToken, log)
	if authService.BypassEnabled() && cfg.IsProduction() {
		log.Warn().Msg("AUTH_BYPASS_TOKEN is set in production")
	}

	// Initialize handlers
	healthHandler := http.NewHealthHandler(checks)
	router := server.NewRouter(cfg, log, server.Handlers{
		Health:       healthHandler,
		Reading:      http.NewReadingHandler(log, readingService),
		Presentation: http.NewPresentationHandler(log, presentationService),
		Speaking:     http.NewSpeakingHandler(log, speakingService),
		Adult:        http.NewAdultHandler(log, adultService),
		Writing:      http.NewWritingHandler(log, writingService),
		History:      http.NewHistoryHandler(log, historyService),
	}, authService, audioDir)

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(cfg, log, router)

	// Expire generated audio on the local disk
	if audioDir != "" {
		sweeper := media.NewSweeper(audioDir, cfg.AudioRetention, cfg.AudioSweepInterval, cfg.AudioSweepRetry, log)
		go sweeper.Run(ctx)
	}

	// Start server
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Msg("Server started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down server...")
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	cancel()

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	}
	if pubsubClient != nil {
		pubsubClient.Close()
	}

	log.Info().Msg("Server stopped")
}
