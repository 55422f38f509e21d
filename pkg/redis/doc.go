// Package redis dials the Redis server backing the queue broker and the
// sandbox action store, with bounded connection retries and a
// readiness probe.
package redis
