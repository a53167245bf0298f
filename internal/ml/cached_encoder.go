package ml

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/cache"
)

const (
	defaultLocalCacheSize = 10000
	cachePrefix           = "embed:text"
)

// CachedEncoder puts an in-process LRU and a shared cache in front of another
// encoder. Shared cache failures are logged and never fail the request.
type CachedEncoder struct {
	next   Encoder
	local  *lru.Cache[string, []float32]
	remote cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedEncoder wraps next. remote may be nil.
func NewCachedEncoder(next Encoder, remote cache.Cache, size int, ttl time.Duration, logger *logrus.Logger) *CachedEncoder {
	if size <= 0 {
		size = defaultLocalCacheSize
	}
	local, err := lru.New[string, []float32](size)
	if err != nil {
		local, _ = lru.New[string, []float32](defaultLocalCacheSize)
	}

	return &CachedEncoder{
		next:   next,
		local:  local,
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}
}

func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	key := CacheKey(e.next.Model(), text)

	if vector, ok := e.local.Get(key); ok {
		return copyVector(vector), nil
	}

	if vector, ok := e.getRemote(ctx, key); ok {
		e.local.Add(key, vector)
		return copyVector(vector), nil
	}

	vector, err := e.next.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != e.next.Dimension() {
		e.logger.WithFields(logrus.Fields{
			"model":    e.next.Model(),
			"expected": e.next.Dimension(),
			"actual":   len(vector),
		}).Warn("Provider returned an embedding of unexpected dimension, not caching it")
		return vector, nil
	}

	e.local.Add(key, copyVector(vector))
	e.setRemote(ctx, key, vector)
	return vector, nil
}

func (e *CachedEncoder) getRemote(ctx context.Context, key string) ([]float32, bool) {
	if e.remote == nil {
		return nil, false
	}

	data, ok, err := e.remote.Get(ctx, key)
	if err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Failed to read cached embedding")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Failed to deserialize cached embedding")
		return nil, false
	}
	if len(vector) != e.next.Dimension() {
		return nil, false
	}
	return vector, true
}

func (e *CachedEncoder) setRemote(ctx context.Context, key string, vector []float32) {
	if e.remote == nil {
		return
	}

	data, err := json.Marshal(vector)
	if err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Failed to serialize embedding for caching")
		return
	}
	if err := e.remote.Set(ctx, key, data, e.ttl); err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Failed to cache embedding")
	}
}

func (e *CachedEncoder) Dimension() int { return e.next.Dimension() }

func (e *CachedEncoder) Model() string { return e.next.Model() }

// CacheKey is embed:text:<model>:<first 16 hex chars of sha256(text)>.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%x", cachePrefix, model, sum[:8])
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
