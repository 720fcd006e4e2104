package kv

import "context"

// Store is a string-keyed durable store holding one serialized collection per key.
// Get returns domain.ErrNotFound when the key has never been written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}
