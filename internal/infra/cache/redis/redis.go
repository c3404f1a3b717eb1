// Package redisx: Redis: кеш метаданных ассетов, блэклист токенов и
// lease склейки между инстансами. Все ключи получают общий префикс.
package redisx

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb    *redis.Client
	prefix string
	logger *log.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
	Prefix   string // напр. "myassets:"
}

func New(cfg Config, logger *log.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return &Cache{rdb: rdb, prefix: cfg.Prefix, logger: logger}
}

func (c *Cache) k(key string) string { return c.prefix + key }

func ttlOf(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Cache) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.logger.Printf("PING failed: %v", err)
	}
	return err
}

func (c *Cache) Close() {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Printf("error while closing: %v", err)
		return
	}
	c.logger.Println("closed")
}

// Get: промах — (nil, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.k(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.logger.Printf("GET %q: miss", key)
		return nil, nil
	case err != nil:
		c.logger.Printf("GET %q: error: %v", key, err)
		return nil, err
	}
	c.logger.Printf("GET %q: hit (%d bytes)", key, len(b))
	return b, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttlSeconds int) error {
	err := c.rdb.Set(ctx, c.k(key), val, ttlOf(ttlSeconds)).Err()
	if err != nil {
		c.logger.Printf("SET %q failed: %v", key, err)
	}
	return err
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.k(key)
	}
	n, err := c.rdb.Del(ctx, full...).Result()
	if err != nil {
		c.logger.Printf("DEL %v failed: %v", keys, err)
		return err
	}
	c.logger.Printf("DEL %v: deleted=%d", keys, n)
	return nil
}

// SetNX устанавливает значение только если ключ ещё не существует.
func (c *Cache) SetNX(ctx context.Context, key string, val []byte, ttlSeconds int) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.k(key), val, ttlOf(ttlSeconds)).Result()
	if err != nil {
		c.logger.Printf("SETNX %q failed: %v", key, err)
	}
	return ok, err
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.k(key)).Result()
	if err != nil {
		c.logger.Printf("EXISTS %q failed: %v", key, err)
		return false, err
	}
	return n == 1, nil
}
