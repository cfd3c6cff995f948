package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryu111/stock-health-bot-sub001/pkg/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = time.Second
)

// Client wraps the Redis client shared by the evaluation cache and the rate limiter
// ⭐ SSOT: Redis 연결은 여기서만 관리
// A disabled Client is valid: every consumer treats it as a no-op backend.
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// Status is the cache section of /health
type Status struct {
	Enabled      bool          `json:"enabled"`
	Healthy      bool          `json:"healthy"`
	Addr         string        `json:"addr,omitempty"`
	ResponseTime time.Duration `json:"response_time,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// New connects to Redis when REDIS_ENABLED is set
// The first ping is bounded by ctx and dialTimeout.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed (%s): %w", addr, err)
	}

	return &Client{
		rdb:     rdb,
		addr:    addr,
		enabled: true,
	}, nil
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

// Status pings Redis and reports the result; a disabled client is healthy
func (c *Client) Status(ctx context.Context) *Status {
	if !c.enabled {
		return &Status{Enabled: false, Healthy: true}
	}

	st := &Status{Enabled: true, Addr: c.addr}
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		st.Error = err.Error()
		return st
	}
	st.ResponseTime = time.Since(start)
	st.Healthy = true
	return st
}

// Redis returns the underlying redis client for scripts and raw commands
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
