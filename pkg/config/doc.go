// Package config loads bastion configuration from environment variables.
//
// Every setting has a default except the JWT signing secret, which must be
// at least 32 bytes. LoadConfig validates the result before returning it.
//
// Server settings:
//
//	BASTION_HOST="0.0.0.0"
//	BASTION_PORT="8080"
//	BASTION_HEALTH_PORT="9090"
//	BASTION_READ_TIMEOUT="15s"
//	BASTION_WRITE_TIMEOUT="15s"
//	BASTION_SHUTDOWN_TIMEOUT="30s"
//	BASTION_ALLOWED_ORIGINS="https://admin.example.com"
//
// Storage settings:
//
//	BASTION_DATABASE_URL="postgres://localhost/bastion?sslmode=disable"
//	BASTION_DATABASE_MAX_CONNS="20"
//	BASTION_REDIS_URL="redis://localhost:6379/0"
//	BASTION_REDIS_POOL_SIZE="10"
//	BASTION_REDIS_KEY_PREFIX=""  # namespaces revocation keys on a shared Redis
//
// Auth settings:
//
//	BASTION_JWT_SECRET="..."
//	BASTION_JWT_ISSUER="bastion"
//	BASTION_ACCESS_TOKEN_TTL="2h"
//	BASTION_REFRESH_TOKEN_TTL="168h"
//	BASTION_ROTATE_REFRESH_TOKENS="false"
//	BASTION_LOGIN_RATE_LIMIT="10"
//	BASTION_LOGIN_RATE_WINDOW="1m"
//	BASTION_SWEEP_SCHEDULE="@every 1h"
//
// RBAC settings:
//
//	BASTION_PERMISSION_CACHE_SIZE="0"  # per-process snapshot cache, off by default
//	BASTION_PERMISSION_CACHE_TTL="1m"
//	BASTION_HIERARCHY_MAX_DEPTH="100"
//
// Observability settings:
//
//	BASTION_LOG_LEVEL="info"
//	BASTION_METRICS_ENABLED="true"
//	BASTION_OTEL_ENABLED="false"
//	BASTION_OTEL_ENDPOINT="localhost:4317"
//	BASTION_OTEL_SAMPLE_RATIO="1.0"
package config
