package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/optincome/pkg/config"
)

// Client wraps the Redis connection shared by the chain cache and the Yahoo
// rate limiter.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// Short timeouts: a slow cache must not stall a screening run.
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = time.Second
)

// New creates a new Redis client
// Redis 비활성화 시 캐시/레이트리밋은 no-op으로 동작
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	c := &Client{rdb: rdb, addr: addr, enabled: true}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return c, nil
}

// Ping checks the connection. A disabled client is always healthy.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection to %s failed: %w", c.addr, err)
	}
	return nil
}

// Addr returns host:port, or "" when Redis is disabled
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
