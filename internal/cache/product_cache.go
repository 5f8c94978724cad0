package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/judithshaven/storefront/internal/config"
	"github.com/judithshaven/storefront/internal/models"
)

const productTTL = 5 * time.Minute

func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// ProductCache is a read-through cache for product lookups. The zero value is a
// no-op so handlers can run without Redis.
type ProductCache struct {
	RDB *redis.Client
}

func productKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *ProductCache) Get(ctx context.Context, id uint) (*models.Product, bool) {
	if c == nil || c.RDB == nil {
		return nil, false
	}
	data, err := c.RDB.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	if c == nil || c.RDB == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, productKey(p.ID), data, productTTL).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, id uint) error {
	if c == nil || c.RDB == nil {
		return nil
	}
	return c.RDB.Del(ctx, productKey(id)).Err()
}
