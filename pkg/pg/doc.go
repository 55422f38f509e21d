// Package pg manages the Postgres connection pool behind the durable
// queue broker: pooled connections with retry on startup, embedded goose
// migrations, and a readiness probe.
package pg
