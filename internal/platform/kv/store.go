// Package kv is the short-lived key/value storage behind selection snapshots and
// session revocations. Redis backs it in production; MemoryStore serves single-instance
// development setups.
package kv

import (
	"context"
	"time"
)

type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take returns the value and removes it, so a second Take misses.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
