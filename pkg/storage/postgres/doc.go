// Package postgres opens the PostgreSQL pool and the Redis client bastion
// runs on, and owns the relational schema.
//
// Migrate is idempotent: applied versions are recorded in
// schema_migrations and skipped on the next run.
package postgres
