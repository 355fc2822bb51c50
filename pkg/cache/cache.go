// Package cache stores upstream responses (translations, Wolfram results,
// avatars) so repeated chat commands do not hit the network again.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under a local directory
//   - [RedisCache]: a shared Redis instance, for several bot processes
//   - [NullCache]: never stores anything (caching disabled)
//
// Keys are built by a [Keyer] so every plugin gets its own namespace:
//
//	k := cache.NewDefaultKeyer()
//	key := k.TranslateKey("zh", "en", "你好")
//	data, ok, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value cache with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored bytes and true on a hit. Expired and
	// unreadable entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop all their entries.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
