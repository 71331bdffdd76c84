// Package cache provides the key/value stores used for decision and frequency-cap caching
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrClosed is returned by stores used after Close
var ErrClosed = errors.New("cache: store closed")

// Store is a byte-oriented TTL cache. A missing or expired key is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON reads key and decodes it into dst. It reports whether the key was present.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes value and stores it under key for ttl
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}
