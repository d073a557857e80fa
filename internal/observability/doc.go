// Package observability provides logging, metrics, and tracing
// functionality for the search gateway.
//
// This package implements the three pillars of observability:
// structured logging via zap, Prometheus metrics collection, and
// distributed tracing via OpenTelemetry with OTLP export.
//
// # Logging
//
// The Logger interface provides structured logging:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request processed",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Prometheus metrics for requests, backpressure, and backends, served
// on a dedicated listener:
//
//	metrics := observability.NewMetrics("gateway")
//	server := observability.NewMetricsServer(nil, metrics, logger)
//
// # Tracing
//
// OpenTelemetry distributed tracing with OTLP gRPC export and W3C
// trace context propagation:
//
//	tracer, err := observability.NewTracer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability
