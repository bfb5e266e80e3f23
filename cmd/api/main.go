// Package main is the entry point for the configurator API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atelierforma/configurator/internal/api"
	"github.com/atelierforma/configurator/internal/audit"
	"github.com/atelierforma/configurator/internal/auth"
	"github.com/atelierforma/configurator/internal/catalog"
	"github.com/atelierforma/configurator/internal/config"
	"github.com/atelierforma/configurator/internal/configsave"
	"github.com/atelierforma/configurator/internal/draft"
	"github.com/atelierforma/configurator/internal/geometry"
	"github.com/atelierforma/configurator/internal/health"
	"github.com/atelierforma/configurator/internal/idempotency"
	"github.com/atelierforma/configurator/internal/jobs"
	"github.com/atelierforma/configurator/internal/middleware"
	"github.com/atelierforma/configurator/internal/payment"
	"github.com/atelierforma/configurator/internal/pricing"
	"github.com/atelierforma/configurator/internal/session"
	"github.com/atelierforma/configurator/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Configurator API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Distributed tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "configurator-api",
		Enabled:      cfg.OTLPEndpoint != "",
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	jobsMetrics := jobs.NewMetrics()
	if err := jobsMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}
	pricingMetrics := pricing.NewMetrics()
	if err := pricingMetrics.Register(registry); err != nil {
		logger.Error("failed to register pricing metrics", "error", err)
		os.Exit(1)
	}

	// Database-backed repositories
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	paramRepo := pricing.NewPostgresParameterRepository(db)
	catalogRepo := catalog.NewPostgresRepository(db)
	configRepo := configsave.NewPostgresRepository(db)
	checkoutRepo := payment.NewPostgresRepository(db)
	webhookRepo := payment.NewPostgresWebhookRepository(db)
	idempotencyRepo := idempotency.NewPostgresRepository(db)
	auditRepo := audit.NewPostgresRepository(db)

	// Redis backs draft persistence and distributed rate limiting.
	// Without it drafts are disabled and rate limiting is per-instance.
	var redisClient *redis.Client
	var drafts *draft.Store
	var rateLimitStore middleware.RateLimitStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		drafts = draft.NewStore(redisClient, draft.DefaultTTL)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).
			WithMetrics(httpMetrics).Store()
		defer redisClient.Close()
	} else {
		logger.Warn("redis not configured, drafts disabled and rate limits are per-instance")
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
	}

	engine := pricing.NewEngine(pricingMetrics)
	geometryClient := geometry.NewClient(cfg.GeometryURL,
		time.Duration(cfg.GeometryTimeoutMS)*time.Millisecond)
	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	authMW := api.NewAuthMiddleware(jwtService)

	stripeEnabled := cfg.StripeAPIKey != ""
	var stripeClient payment.Client
	var stripeChecker api.HealthChecker
	if stripeEnabled {
		stripeClient = payment.NewStripeClient(cfg.StripeAPIKey)
		stripeChecker = health.NewStripeChecker()
	} else {
		logger.Warn("stripe not configured, checkout disabled")
	}

	// Handlers
	quoteHandlers := api.NewQuoteHandlers(engine, paramRepo, catalogRepo, cfg.PriceDeviation)
	structureHandlers := api.NewStructureHandlers()
	configHandlers := api.NewConfigurationHandlers(configRepo, engine, paramRepo, catalogRepo)
	paramsHandlers := api.NewParamsHandlers(paramRepo, auditRepo)
	catalogHandlers := api.NewCatalogHandlers(catalogRepo)
	// A typed nil *draft.Store must not reach the interface.
	var draftStore session.DraftStore
	if drafts != nil {
		draftStore = drafts
	}
	corsCfg := corsConfigFromEnv()
	sessionHandlers := api.NewSessionWSHandlers(engine, paramRepo, catalogRepo, configRepo,
		geometryClient, draftStore, cfg.HistoryDepth,
		time.Duration(cfg.DebounceMS)*time.Millisecond, corsCfg.AllowedOrigins, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		GeometryChecker: health.NewGeometryChecker(geometryClient),
		StripeChecker:   stripeChecker,
		DBChecker:       health.NewDBChecker(db),
		RedisChecker:    redisChecker(redisClient),
		MetricsEnabled:  true,
	})

	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/v1/quote", requireMethod(http.MethodPost, quoteHandlers.Quote))
	mux.HandleFunc("/v1/structure/encode", requireMethod(http.MethodPost, structureHandlers.Encode))
	mux.HandleFunc("/v1/structure/decode", requireMethod(http.MethodPost, structureHandlers.Decode))

	mux.HandleFunc("/v1/configurations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			authMW.RequireAuth(configHandlers.List)(w, r)
		case http.MethodPost:
			authMW.RequireAuth(configHandlers.Create)(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})
	mux.HandleFunc("/v1/configurations/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			authMW.RequireAuth(configHandlers.Get)(w, r)
		case http.MethodPut:
			authMW.RequireAuth(configHandlers.Update)(w, r)
		case http.MethodDelete:
			authMW.RequireAuth(configHandlers.Delete)(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/v1/params", requireMethod(http.MethodGet, paramsHandlers.Snapshot))
	mux.HandleFunc("/v1/params/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			authMW.RequireAdmin(paramsHandlers.Upsert)(w, r)
		case http.MethodDelete:
			authMW.RequireAdmin(paramsHandlers.Delete)(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/v1/catalog/finishes", requireMethod(http.MethodGet, catalogHandlers.Finishes))
	mux.HandleFunc("/v1/catalog/finishes/", requireMethod(http.MethodGet, catalogHandlers.Samples))
	mux.HandleFunc("/v1/catalog/samples/", requireMethod(http.MethodGet, catalogHandlers.Sample))

	if stripeEnabled {
		checkoutHandlers := api.NewCheckoutHandlers(stripeClient, checkoutRepo, configRepo,
			engine, paramRepo, catalogRepo,
			cfg.Currency, cfg.StripeSuccessURL, cfg.StripeCancelURL)
		webhookHandlers := api.NewWebhookHandlers(cfg.StripeWebhookSecret, checkoutRepo, webhookRepo)
		mux.HandleFunc("/v1/checkout", requireMethod(http.MethodPost,
			authMW.RequireAuth(checkoutHandlers.Checkout)))
		mux.HandleFunc("/v1/stripe/webhook", requireMethod(http.MethodPost,
			webhookHandlers.HandleStripeWebhook))
	}

	mux.HandleFunc("/v1/session/ws", sessionHandlers.Serve)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"configurator-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain, outermost first
	var handler http.Handler = mux
	handler = middleware.IdempotencyMiddleware(idempotencyRepo, map[string]bool{
		"/v1/configurations": true,
		"/v1/checkout":       true,
	})(handler)
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(),
		middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(corsCfg)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing("configurator-api")(handler)
	handler = middleware.RequestID(handler)

	if cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	// Background jobs: purge expired idempotency keys hourly and verify
	// the audit hash chain daily.
	jobsCtx, jobsCancel := context.WithCancel(context.Background())
	runner := jobs.NewRunner(jobsMetrics, logger)
	go runner.RunPeriodic(jobsCtx, jobs.JobTypeIdempotencyCleanup, time.Hour, func(ctx context.Context) error {
		_, err := idempotency.CleanupOldKeys(idempotencyRepo, idempotency.DefaultExpiry)
		return err
	})
	go runner.RunPeriodic(jobsCtx, jobs.JobTypeAuditVerify, 24*time.Hour, func(ctx context.Context) error {
		ok, err := auditRepo.VerifyHashChain()
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("audit hash chain verification failed")
		}
		return nil
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	jobsCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}

// requireMethod rejects requests with the wrong HTTP method before they
// reach the handler.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, r)
			return
		}
		next(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeBadRequest)
	api.WriteError(w, ctx, http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
}

// redisChecker wraps the Redis health checker, returning a nil interface
// when Redis is not configured so the readiness probe skips it.
func redisChecker(client *redis.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return health.NewRedisChecker(client)
}

// corsConfigFromEnv builds the CORS configuration from the
// CORS_ALLOWED_ORIGINS environment variable (comma-separated). An empty
// value disables CORS handling entirely.
func corsConfigFromEnv() middleware.CORSConfig {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return middleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}
