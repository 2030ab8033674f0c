// Package cache keeps raw inference responses in redis so that repeated
// predictions on the same image skip the network round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache is a redis-backed cache of prediction responses.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache returns a cache storing entries for ttl. A non-positive
// ttl keeps entries until evicted by redis.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// Key returns the redis key of the response for img on endpointID.
func Key(endpointID string, img []byte) string {
	sum := sha256.Sum256(img)
	return fmt.Sprintf("prediction:%s:%s", endpointID, hex.EncodeToString(sum[:]))
}

// Get returns the cached response, if any.
func (c *ResponseCache) Get(ctx context.Context, endpointID string, img []byte) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, Key(endpointID, img)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// Set stores body as the response for img on endpointID.
func (c *ResponseCache) Set(ctx context.Context, endpointID string, img []byte, body []byte) error {
	return c.client.Set(ctx, Key(endpointID, img), body, c.ttl).Err()
}
