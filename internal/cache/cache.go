package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort byte cache. Callers must tolerate misses and
// errors; nothing in the sync path depends on it.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
