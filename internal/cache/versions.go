package cache

import (
	"context"
	"fmt"
	"strconv"
)

const versionPrefix = "rec:version:"

// Versions namespaces a user's cached results. Bumping the version orphans
// every entry written under the old one, on every instance sharing the cache.
type Versions struct {
	cache Cache
}

func NewVersions(c Cache) *Versions {
	return &Versions{cache: c}
}

// Current returns the user's version; a user never bumped is at 0.
func (v *Versions) Current(ctx context.Context, userID string) (int64, error) {
	data, ok, err := v.cache.Get(ctx, versionPrefix+userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cache version for %s: %w", userID, err)
	}
	return n, nil
}

func (v *Versions) Bump(ctx context.Context, userID string) (int64, error) {
	return v.cache.Incr(ctx, versionPrefix+userID)
}
