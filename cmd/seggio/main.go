package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elettorale/seggio/pkg/api"
	"github.com/elettorale/seggio/pkg/audit"
	"github.com/elettorale/seggio/pkg/auth"
	"github.com/elettorale/seggio/pkg/config"
	"github.com/elettorale/seggio/pkg/election"
	"github.com/elettorale/seggio/pkg/kpi"
	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/permissions"
	"github.com/elettorale/seggio/pkg/sections"
	"github.com/elettorale/seggio/pkg/sheets"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seggio: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":     cfg.Server.Port,
		"dev_mode": cfg.Sheets.DevMode,
	}).Info("Starting seggio")

	var shutdownFuncs []observability.ShutdownFunc

	// OpenTelemetry
	if cfg.Observability.OTelEnabled {
		providers, err := observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	// Metrics
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// Spreadsheet store
	var store sheets.Store
	var pinger observability.Pinger
	if cfg.Sheets.DevMode {
		memStore := sheets.NewMemoryStore()
		store = memStore
		pinger = memStore
		logger.Warn("Dev mode: using in-memory spreadsheet store")
	} else {
		client, err := sheets.NewClient(ctx, sheets.ClientConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			Timeout:         cfg.Sheets.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		store = client
		pinger = client

		if cfg.Sheets.LayoutFile != "" {
			watcher, err := config.WatchLayout(cfg.Sheets.LayoutFile, logger, client.SetLayout)
			if err != nil {
				return fmt.Errorf("failed to load layout overlay: %w", err)
			}
			shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
				return watcher.Close()
			})
		}
	}
	if metrics != nil {
		store = sheets.NewInstrumentedStore(store, metrics)
	}

	// Permission cache
	var cache permissions.Cache
	var redisClient *redis.Client
	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		if cfg.Cache.RedisPassword != "" {
			opts.Password = cfg.Cache.RedisPassword
		}
		if cfg.Cache.RedisDB != 0 {
			opts.DB = cfg.Cache.RedisDB
		}
		redisClient = redis.NewClient(opts)
		cache = permissions.NewRedisCache(redisClient, cfg.Cache.TTL)
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
			return redisClient.Close()
		})
		logger.WithField("ttl", cfg.Cache.TTL.String()).Info("Permission cache: redis")
	} else {
		cache = permissions.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		logger.WithField("ttl", cfg.Cache.TTL.String()).Info("Permission cache: in-memory")
	}

	resolver := permissions.NewSheetResolver(store, cache, metrics)

	// Audit trail
	auditSink, err := buildAuditSink(cfg.Audit)
	if err != nil {
		return err
	}
	dispatcher := audit.NewDispatcher(ctx, auditSink, logger, metrics)
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
		return dispatcher.Close(5 * time.Second)
	})

	// Token verification
	var verifier auth.Verifier
	if cfg.Sheets.DevMode && len(cfg.Auth.DevTokens) > 0 {
		verifier = &auth.StaticVerifier{Tokens: cfg.Auth.DevTokens}
		logger.Warn("Dev mode: using static bearer tokens")
	} else {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
			IssuerURL:    cfg.Auth.IssuerURL,
			ClientID:     cfg.Auth.ClientID,
			HostedDomain: cfg.Auth.HostedDomain,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC verifier: %w", err)
		}
		verifier = oidcVerifier
	}

	// Services
	sectionService := sections.NewService(store, resolver, dispatcher, metrics)
	electionService := election.NewService(store)
	kpiService := kpi.NewService(store)

	snapshotter, err := kpi.NewSnapshotter(kpiService, logger, cfg.KPI.SnapshotCron, cfg.KPI.SnapshotTimeout)
	if err != nil {
		return fmt.Errorf("invalid KPI snapshot schedule: %w", err)
	}
	snapshotter.Start()
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
		snapshotter.Stop()
		return nil
	})

	server := api.NewServer(api.Deps{
		Verifier:     verifier,
		Resolver:     resolver,
		Sections:     sectionService,
		Election:     electionService,
		KPI:          snapshotter,
		Auditor:      dispatcher,
		Metrics:      metrics,
		StaticDir:    cfg.Server.StaticDir,
		CORSOrigins:  cfg.Server.CORSOrigins,
		TraceEnabled: cfg.Observability.OTelEnabled,
	})

	// Health and metrics on a separate port
	healthServer := startHealthServer(cfg.Server, pinger, redisClient, metrics, logger)
	shutdownFuncs = append(shutdownFuncs, func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdownManager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	for _, fn := range shutdownFuncs {
		shutdownManager.RegisterShutdownFunc(fn)
	}

	go func() {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	return shutdownManager.WaitForShutdown()
}

// buildAuditSink assembles the configured audit sinks, falling back to a
// stdout JSON stream when none are configured.
func buildAuditSink(cfg config.AuditConfig) (audit.Logger, error) {
	var sinks []audit.Logger

	if cfg.FilePath != "" {
		fileLogger, err := audit.NewFileLogger(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit file: %w", err)
		}
		sinks = append(sinks, fileLogger)
	}

	if cfg.DBDriver != "" {
		db, err := sql.Open(cfg.DBDriver, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		dbLogger, err := audit.NewDBLogger(db, cfg.DBDriver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize audit database: %w", err)
		}
		sinks = append(sinks, dbLogger)
	}

	switch len(sinks) {
	case 0:
		return audit.NewWriterLogger(os.Stdout), nil
	case 1:
		return sinks[0], nil
	default:
		return audit.NewMultiLogger(sinks...), nil
	}
}

func startHealthServer(cfg config.ServerConfig, pinger observability.Pinger, redisClient *redis.Client, metrics *observability.Metrics, logger *observability.Logger) *http.Server {
	checker := observability.NewHealthChecker(pinger, redisClient)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}

	healthServer := &http.Server{
		Addr:    cfg.Host + ":" + cfg.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	return healthServer
}
