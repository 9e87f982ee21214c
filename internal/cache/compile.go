// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// compile.go caches compile results by the hash of their MJML source.
// L1 is an in-process LRU, L2 is Valkey shared by every instance. Both
// tiers are best-effort: a cache failure never fails a compile.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
)

const (
	// compileKeyPrefix is the Valkey key prefix for compile results.
	compileKeyPrefix = "compile:"

	// DefaultCompileTTL is how long a compile result stays in Valkey.
	DefaultCompileTTL = 24 * time.Hour

	defaultLRUSize = 256
)

// CompileCache maps MJML sources to their compiled output.
type CompileCache struct {
	l1     *lru.Cache[string, models.CompileResult]
	client *redis.Client // nil disables L2
	ttl    time.Duration
}

// NewCompileCache creates a cache holding size entries in memory. client
// may be nil.
func NewCompileCache(client *redis.Client, size int, ttl time.Duration) (*CompileCache, error) {
	if size <= 0 {
		size = defaultLRUSize
	}
	if ttl == 0 {
		ttl = DefaultCompileTTL
	}
	l1, err := lru.New[string, models.CompileResult](size)
	if err != nil {
		return nil, err
	}
	return &CompileCache{l1: l1, client: client, ttl: ttl}, nil
}

// Key returns the cache key for an MJML source.
func Key(mjml string) string {
	sum := sha256.Sum256([]byte(mjml))
	return hex.EncodeToString(sum[:])
}

// Get looks the source up in L1, then L2. An L2 hit is promoted to L1.
func (c *CompileCache) Get(ctx context.Context, mjml string) (*models.CompileResult, bool) {
	key := Key(mjml)
	if res, ok := c.l1.Get(key); ok {
		metrics.CompileCache.WithLabelValues("l1", "hit").Inc()
		return &res, true
	}
	metrics.CompileCache.WithLabelValues("l1", "miss").Inc()

	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, compileKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CompileCache.WithLabelValues("l2", "miss").Inc()
		return nil, false
	}
	if err != nil {
		slog.Warn("compile cache get error", "key", key, "error", err)
		return nil, false
	}
	var res models.CompileResult
	if err := json.Unmarshal(raw, &res); err != nil {
		slog.Warn("compile cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	metrics.CompileCache.WithLabelValues("l2", "hit").Inc()
	c.l1.Add(key, res)
	return &res, true
}

// Set stores a result in both tiers.
func (c *CompileCache) Set(ctx context.Context, mjml string, res *models.CompileResult) {
	key := Key(mjml)
	c.l1.Add(key, *res)
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, compileKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		slog.Warn("compile cache set error", "key", key, "error", err)
	}
}

// InvalidateAll empties L1 and removes every compile entry from Valkey.
// Used after a compiler upgrade, since old output may be stale.
func (c *CompileCache) InvalidateAll(ctx context.Context) {
	c.l1.Purge()
	if c.client == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, compileKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("compile cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("compile cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("compile cache cleared", "deleted", deleted)
	}
}

// Compiler is anything that turns MJML into HTML.
type Compiler interface {
	Compile(ctx context.Context, mjml string) (*models.CompileResult, error)
}

// CachedCompiler consults the cache before delegating to next. Failed
// compiles are never cached.
type CachedCompiler struct {
	next  Compiler
	cache *CompileCache
}

// WrapCompiler returns next fronted by cache.
func WrapCompiler(next Compiler, cache *CompileCache) *CachedCompiler {
	return &CachedCompiler{next: next, cache: cache}
}

func (c *CachedCompiler) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	if res, ok := c.cache.Get(ctx, mjml); ok {
		return res, nil
	}
	res, err := c.next.Compile(ctx, mjml)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, mjml, res)
	return res, nil
}
