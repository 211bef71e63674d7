package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/werent/review-platform/internal/domain"
)

// ReviewPage is a cached review listing page together with its total count.
type ReviewPage struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

// RedisCache caches review pages and product review summaries
type RedisCache struct {
	client         *redis.Client
	summaryTTL     time.Duration
	reviewsListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, summaryTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		summaryTTL:     summaryTTL,
		reviewsListTTL: reviewsListTTL,
	}
}

// reviewsPageKey derives a key from the canonical query so every distinct
// filter/sort/page combination caches independently.
func (c *RedisCache) reviewsPageKey(productID uuid.UUID, q domain.ReviewQuery) string {
	ratings := make([]string, len(q.Ratings))
	for i, r := range q.Ratings {
		ratings[i] = fmt.Sprintf("%d", r)
	}
	fits := make([]string, len(q.Fits))
	for i, f := range q.Fits {
		fits[i] = string(f)
	}

	return fmt.Sprintf(
		"product:%s:reviews:page:%d:limit:%d:rating:%s:fit:%s:media:%t:sort:%s",
		productID.String(), q.Page, q.Limit,
		strings.Join(ratings, ","), strings.Join(fits, ","), q.HasMedia, q.SortBy,
	)
}

func (c *RedisCache) summaryKey(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:summary", productID.String())
}

func (c *RedisCache) productCacheKeysSet(productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:cache_keys", productID.String())
}

// GetReviewsPage retrieves a cached review page for a product
func (c *RedisCache) GetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery) (*ReviewPage, error) {
	key := c.reviewsPageKey(productID, q)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var page ReviewPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// SetReviewsPage stores a review page in cache and tracks the key in a SET
func (c *RedisCache) SetReviewsPage(ctx context.Context, productID uuid.UUID, q domain.ReviewQuery, page *ReviewPage) error {
	key := c.reviewsPageKey(productID, q)
	trackingKey := c.productCacheKeysSet(productID)

	data, err := json.Marshal(page)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSummary retrieves a cached review summary for a product
func (c *RedisCache) GetSummary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	val, err := c.client.Get(ctx, c.summaryKey(productID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var summary domain.ReviewSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

// SetSummary stores a review summary in cache
func (c *RedisCache) SetSummary(ctx context.Context, productID uuid.UUID, summary *domain.ReviewSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.summaryKey(productID), data, c.summaryTTL).Err()
}

// InvalidateProduct removes all cached entries for a product using SET-based
// key tracking. Called whenever the product's review set or helpful marks
// change, since helpful counts appear in cached listings.
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	trackingKey := c.productCacheKeysSet(productID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	keys = append(keys, trackingKey, c.summaryKey(productID))
	return c.client.Unlink(ctx, keys...).Err()
}
