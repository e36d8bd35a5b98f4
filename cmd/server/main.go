package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sowmatch/internal/analysis"
	"sowmatch/internal/config"
	"sowmatch/internal/db"
	"sowmatch/internal/deliverables"
	"sowmatch/internal/engine"
	"sowmatch/internal/export"
	"sowmatch/internal/memstore"
	"sowmatch/internal/metrics"
	"sowmatch/internal/middleware"
	"sowmatch/internal/models"
	"sowmatch/internal/oracle"
	"sowmatch/internal/server"
)

// backend is the storage surface shared by the Postgres and in-memory stores.
type backend interface {
	engine.Corpus
	engine.Store
	db.DevSeeder
	metrics.AnalysisCounter
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	var (
		store  backend
		pinger interface {
			Ping(context.Context) error
		}
	)
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store; analyses are lost on restart")
		store = memstore.New()
	default:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
		store, pinger = database, database
	}

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		logger.Error("failed to load config file", "error", err)
		os.Exit(1)
	}
	if yamlCfg != nil {
		for _, o := range yamlCfg.Organizations {
			if _, err := store.UpsertOrganization(ctx, &models.Organization{Name: o.Name, Slug: o.Slug, ProfileText: o.ProfileText}); err != nil {
				logger.Error("failed to upsert organization", "slug", o.Slug, "error", err)
				os.Exit(1)
			}
		}
		logger.Info("organizations loaded", "count", len(yamlCfg.Organizations))
	}
	if cfg.SeedDevData {
		org, err := db.SeedDevData(ctx, store)
		if err != nil {
			logger.Error("failed to seed development data", "error", err)
			os.Exit(1)
		}
		logger.Info("development data seeded", "organization", org.Slug)
	}

	recorder := metrics.Init(store)

	policy, err := engine.ParseGenerationPolicy(cfg.GenerationPolicy)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.OracleAPIKey == "" {
		logger.Warn("ORACLE_API_KEY is not set; oracle calls will fail")
	}
	client := oracle.NewAnthropicClient(oracle.AnthropicConfig{
		Endpoint:  cfg.OracleURL,
		APIKey:    cfg.OracleAPIKey,
		Model:     cfg.OracleModel,
		Version:   cfg.OracleVersion,
		MaxTokens: cfg.OracleMaxTokens,
	})
	guarded := oracle.NewGuarded(client, oracle.Policy{
		Timeout:   cfg.OracleTimeout,
		Retries:   1,
		RetryWait: cfg.OracleRetryWait,
	}, logger, recorder)

	formatter, err := export.NewFormatter()
	if err != nil {
		logger.Error("failed to load export templates", "error", err)
		os.Exit(1)
	}

	svc := engine.New(engine.Deps{
		Corpus:    store,
		Store:     store,
		Analyzer:  analysis.NewSynthesizer(guarded, logger, cfg.MaxSOWChars),
		Generator: deliverables.NewSynthesizer(guarded, logger, deliverables.WithMaxTokens(cfg.OracleMaxTokens)),
		Formatter: formatter,
		Oracle:    guarded,
	}, engine.Options{Policy: policy, Logger: logger, Observer: recorder})

	routes := server.Routes{Service: svc}
	if pinger != nil {
		routes.Health = pinger
	}
	if cfg.AuthEnabled() {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCOrgClaim)
		if err != nil {
			logger.Error("failed to initialize OIDC verifier", "issuer", cfg.OIDCIssuer, "error", err)
			os.Exit(1)
		}
		routes.Verifier = verifier
	}

	srv := server.New(cfg, logger)
	srv.RegisterRoutes(routes)

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	logger.Info("server started", "addr", cfg.ServerAddr, "store", cfg.StoreBackend, "generation_policy", policy)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
