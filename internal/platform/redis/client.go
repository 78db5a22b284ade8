package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"warden/internal/platform/config"
)

// Client embeds the go-redis client and adds a health probe and pool metrics.
type Client struct {
	*redis.Client
}

// New dials Redis and pings it once. An empty URL means Redis is not
// configured and yields a nil client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// options parses the URL and lets non-zero pool settings override it.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("redis not configured")
	}
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// Collector exposes the connection pool counters under warden_redis_pool_*.
// Values are read from PoolStats at scrape time.
func (c *Client) Collector() prometheus.Collector {
	return &poolCollector{stats: c.PoolStats}
}

var (
	poolHitsDesc     = prometheus.NewDesc("warden_redis_pool_hits_total", "Connections found in the pool.", nil, nil)
	poolMissesDesc   = prometheus.NewDesc("warden_redis_pool_misses_total", "Connections not found in the pool.", nil, nil)
	poolTimeoutsDesc = prometheus.NewDesc("warden_redis_pool_timeouts_total", "Waits for a connection that timed out.", nil, nil)
	poolStaleDesc    = prometheus.NewDesc("warden_redis_pool_stale_conns_total", "Stale connections removed from the pool.", nil, nil)
	poolTotalDesc    = prometheus.NewDesc("warden_redis_pool_total_conns", "Connections currently in the pool.", nil, nil)
	poolIdleDesc     = prometheus.NewDesc("warden_redis_pool_idle_conns", "Idle connections currently in the pool.", nil, nil)
)

type poolCollector struct {
	stats func() *redis.PoolStats
}

func (pc *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolHitsDesc
	ch <- poolMissesDesc
	ch <- poolTimeoutsDesc
	ch <- poolStaleDesc
	ch <- poolTotalDesc
	ch <- poolIdleDesc
}

func (pc *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := pc.stats()
	ch <- prometheus.MustNewConstMetric(poolHitsDesc, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(poolMissesDesc, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(poolTimeoutsDesc, prometheus.CounterValue, float64(st.Timeouts))
	ch <- prometheus.MustNewConstMetric(poolStaleDesc, prometheus.CounterValue, float64(st.StaleConns))
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(st.TotalConns))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(st.IdleConns))
}
