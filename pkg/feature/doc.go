// Package feature exposes the read-only tenant configuration lookup the
// pipeline consumes: per-tenant feature flags gating business jobs and
// the tenant profile (timezone, currency, platforms). The backing store
// is owned by the surrounding service; a seeded in-memory implementation
// ships for tests and single-binary deployments.
package feature
