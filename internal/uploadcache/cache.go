// Package uploadcache deduplicates artifact uploads by content digest. The
// digest keys a TTL'd entry in a shared key/value store; identical content
// uploaded within the window reuses the stored URL instead of writing to
// object storage again. Expiry simply turns the next identical upload into a
// fresh miss.
package uploadcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renderq/internal/infra"
	"renderq/internal/storage"
)

// ErrCacheMiss is returned by a Store when no live entry exists for a digest.
var ErrCacheMiss = errors.New("uploadcache: miss")

// Entry records one deduplicated upload, keyed by content digest.
type Entry struct {
	Hash        string    `json:"hash"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store is the key/value backing for cache entries. Implementations must
// honor the TTL; an expired digest reads as ErrCacheMiss.
type Store interface {
	GetEntry(ctx context.Context, hash string) (*Entry, error)
	PutEntry(ctx context.Context, entry *Entry, ttl time.Duration) error
}

type Cache struct {
	store   Store
	objects storage.ObjectStore
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *infra.Metrics
}

type Options struct {
	Store   Store
	Objects storage.ObjectStore
	TTL     time.Duration
	Logger  zerolog.Logger
	Metrics *infra.Metrics
}

func New(opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		store:   opts.Store,
		objects: opts.Objects,
		ttl:     ttl,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// GetOrUpload returns the URL for the file's content, uploading it to object
// storage only when no live cache entry exists for its digest. Store errors
// degrade to a miss: a broken cache must never fail an upload.
func (c *Cache) GetOrUpload(ctx context.Context, filePath, contentType, filename string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("uploadcache: read file: %w", err)
	}
	return c.GetOrUploadBytes(ctx, data, contentType, filename)
}

// GetOrUploadBytes is GetOrUpload for in-memory content.
func (c *Cache) GetOrUploadBytes(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	entry, err := c.store.GetEntry(ctx, hash)
	if err == nil {
		c.logger.Debug().Str("hash", hash).Msg("uploadcache: hit")
		if c.metrics != nil {
			c.metrics.UploadCacheHits.Inc()
		}
		return entry.URL, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("uploadcache: lookup failed, treating as miss")
	}
	if c.metrics != nil {
		c.metrics.UploadCacheMisses.Inc()
	}

	key := path.Join("uploads", uuid.NewString(), path.Base(filename))
	url, err := c.objects.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("uploadcache: upload: %w", err)
	}

	fresh := &Entry{
		Hash:        hash,
		URL:         url,
		StorageKey:  key,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	if err := c.store.PutEntry(ctx, fresh, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("uploadcache: store entry failed")
	}
	return url, nil
}
