package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"multimind.ai/server/internal/api"
	"multimind.ai/server/internal/auth"
	"multimind.ai/server/internal/config"
	"multimind.ai/server/internal/core"
	"multimind.ai/server/internal/identity"
	"multimind.ai/server/internal/jobs"
	"multimind.ai/server/internal/logger"
	"multimind.ai/server/internal/media"
	"multimind.ai/server/internal/store"
	"multimind.ai/server/internal/telemetry"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Command line flag for running migrations only
	migrateFlag := flag.String("migrate", "", "Run database migrations (up|down) and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer dbStore.Close()

	if *migrateFlag != "" {
		if err := dbStore.Migrate(*migrateFlag); err != nil {
			log.Fatal().Err(err).Str("direction", *migrateFlag).Msg("Migration failed")
		}
		log.Info().Str("direction", *migrateFlag).Msg("Migrations applied. Exiting.")
		return
	}

	if err := dbStore.Migrate("up"); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.OTELServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Identity provider
	verifier, err := auth.NewVerifier(cfg.ClerkJWTPublicKey, cfg.JWTSecret, cfg.ClerkAuthorizedParties)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session verifier")
	}
	users := identity.NewClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey, nil)
	entitlements := identity.NewEntitlements(users)

	var profileCache identity.ProfileCache
	if cfg.RedisAddr != "" {
		redisCache := identity.NewRedisCache(identity.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.ProfileCacheTTL,
		})
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Profile cache unreachable, lookups will hit the identity provider")
		}
		profileCache = redisCache
	}
	directory := identity.NewDirectory(users, profileCache)

	// Generation providers
	textGen, closeText, err := newTextGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.TextProvider).Msg("Failed to initialize text provider")
	}
	defer closeText()

	cloudinary := media.NewCloudinary(media.CloudinaryConfig{
		CloudName:   cfg.CloudinaryCloudName,
		APIKey:      cfg.CloudinaryAPIKey,
		APISecret:   cfg.CloudinaryAPISecret,
		APIURL:      cfg.CloudinaryAPIURL,
		DeliveryURL: cfg.CloudinaryDeliveryURL,
	}, nil)

	policy, err := core.NewPolicy(ctx, cfg.FreeUsageLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gating policy")
	}

	gateway := core.NewGateway(core.GatewayDeps{
		Gate:    policy,
		Ledger:  core.NewUsageLedger(entitlements),
		Store:   dbStore,
		Text:    textGen,
		Images:  newImageGenerator(cfg),
		Host:    cloudinary,
		Timeout: cfg.ProviderTimeout,
	})

	// Background jobs
	reconciler := jobs.NewLikeReconciler(dbStore, cfg.LikeReconcileSchedule)
	if err := reconciler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start like count reconciler")
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(api.Options{
		Verifier:       verifier,
		Resolver:       core.NewEntitlementResolver(entitlements),
		Gateway:        gateway,
		Likes:          core.NewLikeService(dbStore),
		Feed:           core.NewFeedService(dbStore, directory),
		Creations:      core.NewCreationService(dbStore),
		DB:             dbStore,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Env: map[string]bool{
			"hasDatabase":   cfg.DatabaseURL != "",
			"hasClerk":      cfg.ClerkSecretKey != "",
			"hasGemini":     cfg.GeminiAPIKey != "",
			"hasCloudinary": cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPISecret != "",
			"hasClipdrop":   cfg.ClipdropAPIKey != "",
		},
	})
	router := api.NewRouter(apiHandler, cfg.CORSAllowedOrigins)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     otelhttp.NewHandler(router, "multimind"),
		ReadTimeout: 30 * time.Second,
		// generation requests wait on the provider for up to PROVIDER_TIMEOUT
		WriteTimeout: cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Env).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	reconciler.Stop(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exiting gracefully")
}

func newTextGenerator(ctx context.Context, cfg config.Config) (core.TextGenerator, func(), error) {
	switch cfg.TextProvider {
	case config.TextProviderOpenAI:
		return core.NewOpenAIService(openAIConfig(cfg)), func() {}, nil
	default:
		gemini, err := core.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return gemini, gemini.Close, nil
	}
}

func newImageGenerator(cfg config.Config) core.ImageGenerator {
	if cfg.ImageProvider == config.ImageProviderOpenAI {
		return core.NewOpenAIService(openAIConfig(cfg))
	}
	return media.NewClipdrop(cfg.ClipdropAPIURL, cfg.ClipdropAPIKey, nil)
}

func openAIConfig(cfg config.Config) core.OpenAIConfig {
	return core.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		ImageModel: cfg.OpenAIImageModel,
	}
}
