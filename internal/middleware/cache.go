package middleware

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/cache"
)

// CacheConfig represents cache configuration
type CacheConfig struct {
	TTL       time.Duration
	MaxSize   int64
	KeyPrefix string
}

type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache caches successful GET responses. Only mount it on routes
// whose output does not depend on the caller.
func ResponseCache(store cache.Cache, cfg CacheConfig, logger *logrus.Logger) gin.HandlerFunc {
	if store == nil || cfg.TTL <= 0 {
		logger.Warn("Response cache disabled")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := generateCacheKey(c, cfg.KeyPrefix)
		ctx := c.Request.Context()

		if data, ok, err := store.Get(ctx, key); err != nil {
			logger.WithError(err).WithField("cache_key", key).Warn("Failed to read cached response")
		} else if ok {
			var response cachedResponse
			if err := json.Unmarshal(data, &response); err == nil {
				c.Header("X-Cache", "HIT")
				c.Data(response.StatusCode, response.ContentType, response.Body)
				c.Abort()
				return
			}
		}

		writer := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || len(writer.body) == 0 {
			return
		}
		if cfg.MaxSize > 0 && int64(len(writer.body)) > cfg.MaxSize {
			logger.WithField("size", len(writer.body)).Debug("Response too large to cache")
			return
		}

		data, err := json.Marshal(cachedResponse{
			StatusCode:  status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body,
		})
		if err != nil {
			return
		}
		if err := store.Set(ctx, key, data, cfg.TTL); err != nil {
			logger.WithError(err).WithField("cache_key", key).Warn("Failed to cache response")
		}
	}
}

// cacheWriter captures the body on its way to the client.
type cacheWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *cacheWriter) Write(data []byte) (int, error) {
	w.body = append(w.body, data...)
	return w.ResponseWriter.Write(data)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func generateCacheKey(c *gin.Context, prefix string) string {
	hash := md5.Sum([]byte(c.Request.Method + ":" + c.Request.URL.Path + "?" + c.Request.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, hash)
}
