package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"ciphersql/internal/observability"
	"ciphersql/internal/repositories"
)

// HintCache is satisfied by *repositories.RedisRepository.
type HintCache interface {
	GetHint(ctx context.Context, digest string) (string, error)
	StoreHint(ctx context.Context, digest, hint string) error
}

// CachedAdvisor serves repeated hint requests from a cache. Cache failures
// are logged and the wrapped advisor is asked instead.
type CachedAdvisor struct {
	next  HintAdvisor
	cache HintCache
}

func NewCachedAdvisor(next HintAdvisor, cache HintCache) *CachedAdvisor {
	return &CachedAdvisor{next: next, cache: cache}
}

func (c *CachedAdvisor) Hint(ctx context.Context, req HintRequest) string {
	digest := hintDigest(req)

	hint, err := c.cache.GetHint(ctx, digest)
	switch {
	case err == nil && hint != "":
		observability.HintsTotal.WithLabelValues("cache").Inc()
		return hint
	case err != nil && !errors.Is(err, repositories.ErrCacheMiss):
		slog.Warn("hint cache read failed", "error", err)
	}

	hint = c.next.Hint(ctx, req)
	// Static fallbacks are never cached.
	if hint == StaticHint(req.Error) {
		return hint
	}
	if err := c.cache.StoreHint(ctx, digest, hint); err != nil {
		slog.Warn("hint cache write failed", "error", err)
	}
	return hint
}

// hintDigest identifies a request by its assignment, query and error text.
func hintDigest(req HintRequest) string {
	h := sha256.New()
	for _, part := range []string{req.AssignmentID, req.SQL, req.Error} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
