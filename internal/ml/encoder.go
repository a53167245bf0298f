package ml

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/temcen/cinerank/internal/cache"
	"github.com/temcen/cinerank/internal/config"
)

var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrProviderFailed = errors.New("embedding provider failed")
)

const (
	ProviderHTTP = "http"
	ProviderHash = "hash"
)

// Encoder turns free text into a query vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// NewEncoder builds the configured provider wrapped in the embedding cache.
func NewEncoder(cfg config.EmbeddingConfig, remote cache.Cache, logger *logrus.Logger) (Encoder, error) {
	var provider Encoder
	switch cfg.Provider {
	case ProviderHTTP:
		provider = NewHTTPEncoder(HTTPEncoderConfig{
			URL:       cfg.URL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		}, logger)
	case ProviderHash:
		provider = NewHashEncoder(cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	logger.WithFields(logrus.Fields{
		"provider":  cfg.Provider,
		"model":     cfg.Model,
		"dimension": cfg.Dimension,
	}).Info("Embedding provider configured")

	return NewCachedEncoder(provider, remote, cfg.CacheSize, cfg.CacheTTL, logger), nil
}

// l2Normalize returns a unit-length copy of v. A zero vector is returned as is.
func l2Normalize(v []float32) []float32 {
	vec := make([]float64, len(v))
	for i, x := range v {
		vec[i] = float64(x)
	}

	norm := floats.Norm(vec, 2)
	if norm == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out
}
