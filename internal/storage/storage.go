package storage

import "context"

// ObjectStore persists result artifacts and returns a client-retrievable URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
