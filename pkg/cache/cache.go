// Package cache stores routed meshes and rendered artifacts between runs.
//
// Routing is the expensive stage of the layout flow, and its output is a
// pure function of the comparator parameters, the process and the router.
// The pipeline keys a [Cache] with a [Keyer] over those inputs.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory (CLI)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and whether it was found. A missing or expired
	// key is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	TTLMesh     = 30 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
