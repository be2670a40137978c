package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/cachegc"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Warmer populates cache entries.
type Warmer interface {
	Warm(ctx context.Context, keys []string) error
}

// CacheWarm populates cache keys, skipping keys warmed recently.
type CacheWarm struct {
	Warmer Warmer
	Recent *cachegc.Set // optional
	Log    *zap.Logger
}

// Handle validates the key list and warms the keys not seen recently.
func (h *CacheWarm) Handle(ctx context.Context, p jobs.CacheWarm) error {
	keys := make([]string, 0, len(p.Keys))
	for _, key := range p.Keys {
		if strings.TrimSpace(key) == "" {
			return &jobs.ValidationError{Kind: jobs.KindCacheWarm, Field: "keys", Reason: "blank key"}
		}
		if h.Recent != nil && h.Recent.Contains(key) {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		h.Log.Debug("All keys warmed recently", zap.Int("cache.keys", len(p.Keys)))
		return nil
	}
	if err := h.Warmer.Warm(ctx, keys); err != nil {
		return err
	}
	if h.Recent != nil {
		for _, key := range keys {
			h.Recent.Add(key)
		}
	}
	h.Log.Info("Warmed cache", zap.Int("cache.keys", len(keys)))
	return nil
}

// LogWarmer only logs the keys.
type LogWarmer struct {
	Log *zap.Logger
}

// Warm logs the keys.
func (w *LogWarmer) Warm(_ context.Context, keys []string) error {
	w.Log.Debug("Warming cache", zap.Strings("cache.keys", keys))
	return nil
}
