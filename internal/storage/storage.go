package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("snapshot not found")

// Storage persists whole-document snapshots by key. Writes must be atomic.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}
