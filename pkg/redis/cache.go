package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether lookups can ever hit
func (c *Cache) Enabled() bool {
	return c.client != nil && c.client.Enabled()
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Key not found is not an error
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute // 장중 재평가
	TTLMedium = 5 * time.Minute // 평가 결과 기본값
	TTLLong   = 1 * time.Hour   // 비교 리포트
	TTLDaily  = 24 * time.Hour  // 일별 스냅샷
)

// EvaluationKey identifies one evaluation result
// The weights hash is part of the key so weight changes never serve stale results.
func EvaluationKey(symbol, market, industry, weightsHash string) string {
	if industry == "" {
		industry = "-"
	}
	return fmt.Sprintf("eval:%s:%s:%s:%s", symbol, market, industry, shortHash(weightsHash))
}

// ComparisonKey identifies a comparative report over a set of symbols
// Symbol order does not matter.
func ComparisonKey(industry, weightsHash string, symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, ",")))
	if industry == "" {
		industry = "-"
	}
	return fmt.Sprintf("compare:%s:%s:%s", industry, shortHash(weightsHash), hex.EncodeToString(sum[:8]))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}
