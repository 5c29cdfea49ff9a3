package object

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// PresignedPut is a time-limited URL accepting a single direct PUT.
type PresignedPut struct {
	URL       string
	ExpiresAt time.Time
}

// Presigner issues upload grants against the backing store.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (PresignedPut, error)
}

// Store reads objects back after they were uploaded.
type Store interface {
	Stat(ctx context.Context, key string) (Info, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Bucket is a backend that can both grant uploads and read objects.
type Bucket interface {
	Presigner
	Store
}
