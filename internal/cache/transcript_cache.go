// Package cache stores transcripts between a successful transcription and
// a (possibly retried) summarization, so a summarization-only retry never
// pays for a second transcription.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheNotFound is returned when a cache key is missing or expired.
var ErrCacheNotFound = errors.New("cache_not_found")

// Entries expire after 24 hours.
const TTL = 24 * time.Hour

const keyPrefix = "transcript:"

// Entry is a cached transcription result.
type Entry struct {
	CacheKey        string    `json:"cache_key"`
	Filename        string    `json:"filename"`
	DurationMinutes float64   `json:"duration_minutes"`
	Transcript      string    `json:"transcript"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Key derives the opaque cache key clients get back on partial failures:
// the first 16 hex characters of md5("filename:sizeBytes").
func Key(filename string, sizeBytes int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", filename, sizeBytes)))
	return hex.EncodeToString(sum[:])[:16]
}

// TranscriptCache persists transcripts for summarization retries.
type TranscriptCache interface {
	Save(ctx context.Context, entry Entry) error
	Get(ctx context.Context, cacheKey string) (*Entry, error)
	Delete(ctx context.Context, cacheKey string) (bool, error)
	List(ctx context.Context) ([]Entry, error)
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates a TranscriptCache backed by Redis.
func NewRedisCache(client *redis.Client) TranscriptCache {
	return &redisCache{client: client}
}

func (c *redisCache) Save(ctx context.Context, entry Entry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(TTL)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", entry.CacheKey, err)
	}
	if err := c.client.Set(ctx, keyPrefix+entry.CacheKey, data, TTL).Err(); err != nil {
		return fmt.Errorf("save cache entry %s: %w", entry.CacheKey, err)
	}
	return nil
}

func (c *redisCache) Get(ctx context.Context, cacheKey string) (*Entry, error) {
	data, err := c.client.Get(ctx, keyPrefix+cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s: %w", cacheKey, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry: drop it and report a miss.
		_, _ = c.Delete(ctx, cacheKey)
		return nil, ErrCacheNotFound
	}
	return &entry, nil
}

func (c *redisCache) Delete(ctx context.Context, cacheKey string) (bool, error) {
	n, err := c.client.Del(ctx, keyPrefix+cacheKey).Result()
	if err != nil {
		return false, fmt.Errorf("delete cache entry %s: %w", cacheKey, err)
	}
	return n > 0, nil
}

func (c *redisCache) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := c.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list cache entries: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan cache entries: %w", err)
	}
	return entries, nil
}
