// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure: JSON logging, metrics
// collection, health probes, tracing setup, and graceful shutdown.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("email", email).Info("permissions resolved")
//
// # Prometheus Metrics
//
// Initialize and record metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.SheetOperationsTotal.WithLabelValues("read", "Dati", "success").Inc()
//	metrics.PermissionCacheHitsTotal.Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(sheetsClient, redisClient)
//	mux.HandleFunc("/healthz", checker.Liveness)
//	mux.HandleFunc("/readyz", checker.Readiness)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/sheets: instrumented store wrapper
package observability
