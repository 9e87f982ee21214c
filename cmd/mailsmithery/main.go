// Package main is the entry point for the MailSmithery API server.
// It loads configuration, connects to services, wires the collaborators,
// sets up routing, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailsmithery/internal/ai"
	"mailsmithery/internal/brand"
	"mailsmithery/internal/cache"
	"mailsmithery/internal/compiler"
	"mailsmithery/internal/config"
	"mailsmithery/internal/database"
	"mailsmithery/internal/editor"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/handlers"
	"mailsmithery/internal/lint"
	"mailsmithery/internal/middleware"
	"mailsmithery/internal/planner"
	"mailsmithery/internal/router"
	"mailsmithery/internal/storage"
	"mailsmithery/internal/store"
)

// rateWindow is the window AI_RATE_LIMIT is counted over.
const rateWindow = time.Minute

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON otherwise.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"remote_functions", cfg.UseRemoteFunctions(),
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Valkey backs the shared compile cache and rate limits. Without it both
	// fall back to process memory.
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, using in-process cache and rate limits", "error", err)
		valkeyClient = nil
	} else {
		defer valkeyClient.Close()
	}

	// Initialize data stores.
	projectStore := store.NewProjectStore(db)
	templateStore := store.NewTemplateStore(db)
	versionStore := store.NewVersionStore(db)
	extractionStore := store.NewExtractionStore(db)

	// Collaborators: the hosted functions when configured, local
	// implementations otherwise.
	deps := editor.Deps{
		Projects:  projectStore,
		Templates: templateStore,
		Versions:  versionStore,
	}

	var baseCompiler cache.Compiler
	if cfg.UseRemoteFunctions() {
		fn := functions.New(cfg.FunctionsURL, cfg.FunctionsKey,
			functions.WithTimeout(cfg.FunctionsTimeout),
			functions.WithMaxRetries(cfg.FunctionsRetries),
		)
		deps.Planner, deps.Editor, deps.Linter = fn, fn, fn
		baseCompiler = fn
		slog.Info("using remote functions", "url", cfg.FunctionsURL)
	} else {
		aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
			"openai":  ai.ProviderConfig(cfg.OpenAI),
			"gemini":  ai.ProviderConfig(cfg.Gemini),
			"claude":  ai.ProviderConfig(cfg.Claude),
			"mistral": ai.ProviderConfig(cfg.Mistral),
		})
		slog.Info("ai providers initialized",
			"active", aiRegistry.ActiveName(),
			"available", aiRegistry.Available(),
		)

		localPlanner, err := planner.New(aiRegistry)
		if err != nil {
			slog.Error("failed to initialize planner", "error", err)
			os.Exit(1)
		}
		deps.Planner, deps.Editor = localPlanner, localPlanner
		baseCompiler = compiler.New(true)
	}

	compileCache, err := cache.NewCompileCache(valkeyClient, cfg.CompileLRUSize, cfg.CompileCacheTTL)
	if err != nil {
		slog.Error("failed to initialize compile cache", "error", err)
		os.Exit(1)
	}
	deps.Compiler = cache.WrapCompiler(baseCompiler, compileCache)
	if deps.Linter == nil {
		deps.Linter = lint.New(deps.Compiler)
	}

	// Connect to S3-compatible object storage (optional; publishing is
	// disabled without it).
	if cfg.S3Enabled() {
		storageClient, err := storage.New(storage.Options{
			Endpoint:   cfg.S3Endpoint,
			Region:     cfg.S3Region,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			PublicURL:  cfg.S3PublicURL,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if storageClient != nil {
			deps.Publisher = storageClient
			slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		}
	} else {
		slog.Warn("s3 storage not configured, publishing disabled")
	}

	// Brand extraction needs a Firecrawl key.
	var extractor handlers.BrandExtractor
	if cfg.FirecrawlAPIKey != "" {
		extractor = brand.NewExtractor(projectStore, extractionStore, brand.NewFirecrawl(cfg.FirecrawlAPIKey, cfg.FirecrawlBaseURL))
	} else {
		slog.Warn("firecrawl not configured, brand extraction disabled")
	}

	svc := editor.New(deps)
	api := handlers.NewAPI(projectStore, templateStore, svc, extractor)

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	var limiter middleware.Limiter
	if valkeyClient != nil {
		limiter = middleware.NewRedisRateLimiter(valkeyClient, cfg.AIRateLimit, rateWindow)
	} else {
		local := middleware.NewRateLimiter(cfg.AIRateLimit, rateWindow)
		defer local.Stop()
		limiter = local
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(api, auth, limiter, rateWindow)

	// WriteTimeout must accommodate plan and edit calls that wait on an LLM,
	// including retries.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      4 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
