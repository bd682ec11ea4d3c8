// Package observability provides structured logging, Prometheus metrics,
// health checks, graceful shutdown and OpenTelemetry tracing.
//
// # Structured Logging
//
// Loggers are logrus based and emit JSON:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", 42).Info("login succeeded")
//
// Request scoped loggers travel in the context and pick up the request and
// user ids set by the HTTP middleware:
//
//	observability.FromContext(ctx, fallback).Warn("refresh rejected")
//
// Usernames are never logged in clear; use MaskUsername.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordLogin(observability.OutcomeSuccess)
//
// A nil *Metrics is accepted everywhere and records nothing.
//
// # Health Checks
//
// The readiness probe reports unhealthy when either the database or Redis is
// unreachable, since access tokens cannot be checked for revocation without
// Redis.
//
// # OpenTelemetry
//
// InitOTel installs OTLP gRPC trace and metric exporters when enabled.
package observability
