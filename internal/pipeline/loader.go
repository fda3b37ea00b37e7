// Package pipeline orchestrates catalog loading, caching, filtering and
// summary aggregation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/mealplan/internal/catalog"
)

// Fetcher retrieves a fresh catalog payload.
type Fetcher interface {
	Fetch(ctx context.Context) (*catalog.Payload, error)
}

// Cache persists the last successfully fetched catalog payload.
type Cache interface {
	SaveCatalog(payload []byte, fetchedAt time.Time) error
	LoadCatalog() ([]byte, time.Time, bool, error)
}

// LoadResult holds the output of a catalog load.
type LoadResult struct {
	Snapshot  *catalog.Snapshot
	FromCache bool
	// FetchErr is the live fetch failure when the snapshot came from cache.
	FetchErr error
	// CacheErr is a failure to write the fresh payload to the cache.
	CacheErr error
}

// LoadCatalog fetches a live catalog and refreshes the cache with it. When
// the fetch fails and useCache is set, the cached catalog is returned instead.
// With no usable cache the result carries an empty snapshot along with the
// fetch error, so views degrade to empty.
func LoadCatalog(ctx context.Context, fetcher Fetcher, cache Cache, useCache bool) (*LoadResult, error) {
	payload, err := fetcher.Fetch(ctx)
	if err == nil {
		now := time.Now()
		result := &LoadResult{Snapshot: payload.Snapshot(now)}
		if cache != nil {
			result.CacheErr = saveCached(cache, payload, now)
		}
		return result, nil
	}

	if useCache && cache != nil && ctx.Err() == nil {
		snap, ok, cacheErr := loadCached(cache)
		if cacheErr == nil && ok {
			return &LoadResult{Snapshot: snap, FromCache: true, FetchErr: err}, nil
		}
	}

	return &LoadResult{Snapshot: catalog.Empty()}, fmt.Errorf("loading catalog: %w", err)
}

func saveCached(cache Cache, payload *catalog.Payload, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return cache.SaveCatalog(data, at)
}

func loadCached(cache Cache) (*catalog.Snapshot, bool, error) {
	data, at, ok, err := cache.LoadCatalog()
	if err != nil || !ok {
		return nil, false, err
	}
	var payload catalog.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, fmt.Errorf("decoding cached catalog: %w", err)
	}
	return payload.Snapshot(at), true, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "mealplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "mealplan")
}

// LogPath returns the full path to the log file.
func LogPath() string {
	return filepath.Join(CacheDir(), "mealplan.log")
}
