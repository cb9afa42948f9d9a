package ports

import (
	"context"
	"time"
)

// Cache is a string cache with TTL semantics, used for machine-token
// caching. Get returns found=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
