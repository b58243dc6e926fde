package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"nextgate-hq/relay/pkg/config"
)

// Modes supported by Connect.
const (
	ModeSingle  = "single"
	ModeCluster = "cluster"
)

// Recorder receives one observation per store operation.
type Recorder interface {
	RecordKVOperation(op, outcome string, duration time.Duration)
}

// Client is the process-wide facade over a single Redis node or a Redis
// Cluster. It is safe for concurrent use; every operation is independently
// atomic at the store.
type Client struct {
	rdb      redis.UniversalClient
	mode     string
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// Connect builds a client for the configured mode. Connections are
// established lazily; use Ping to check reachability.
func Connect(cfg config.RedisConfig, opts ...Option) (*Client, error) {
	var rdb redis.UniversalClient

	switch cfg.Mode {
	case ModeSingle:
		if len(cfg.SingleHost) == 0 {
			return nil, fmt.Errorf("kvstore: single mode requires a host")
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.SingleHost[0],
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           0,
			DialTimeout:  cfg.ConnectTimeout,
			ReadTimeout:  cfg.CommandTimeout,
			WriteTimeout: cfg.CommandTimeout,
			MaxRetries:   cfg.MaxRetries,
		})
	case ModeCluster:
		if len(cfg.ClusterNodes) == 0 {
			return nil, fmt.Errorf("kvstore: cluster mode requires nodes")
		}
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterNodes,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DialTimeout:  cfg.ConnectTimeout,
			ReadTimeout:  cfg.CommandTimeout,
			WriteTimeout: cfg.CommandTimeout,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("%w %q (must be %s or %s)", ErrInvalidMode, cfg.Mode, ModeSingle, ModeCluster)
	}

	return New(rdb, cfg.Mode, opts...), nil
}

// New wraps an existing go-redis client.
func New(rdb redis.UniversalClient, mode string, opts ...Option) *Client {
	c := &Client{rdb: rdb, mode: mode}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns "single" or "cluster".
func (c *Client) Mode() string {
	return c.mode
}

// Raw returns the underlying go-redis client.
func (c *Client) Raw() redis.UniversalClient {
	return c.rdb
}

// Get returns the value stored at key. A missing key yields ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", c.fail(ctx, "get", key, start, err)
	}
	c.done(ctx, "get", key, start, slog.Int("value_len", len(val)))
	return val, nil
}

// Set stores value at key. A ttl of zero keeps the key until deleted.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return c.fail(ctx, "set", key, start, err)
	}
	c.done(ctx, "set", key, start, slog.Duration("ttl", ttl))
	return nil
}

// Del removes key. Removing a missing key is not an error.
func (c *Client) Del(ctx context.Context, key string) error {
	start := time.Now()
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return c.fail(ctx, "del", key, start, err)
	}
	c.done(ctx, "del", key, start)
	return nil
}

// Expire resets the TTL of key. A missing key yields ErrNotFound.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return c.fail(ctx, "expire", key, start, err)
	}
	if !ok {
		return c.fail(ctx, "expire", key, start, redis.Nil)
	}
	c.done(ctx, "expire", key, start, slog.Duration("ttl", ttl))
	return nil
}

// Scan returns every key matching pattern, fetching count keys per round
// trip. In cluster mode each master is scanned.
func (c *Client) Scan(ctx context.Context, pattern string, count int64) ([]string, error) {
	start := time.Now()

	var (
		mu   sync.Mutex
		keys []string
	)
	scanNode := func(ctx context.Context, node redis.Cmdable) error {
		iter := node.Scan(ctx, 0, pattern, count).Iterator()
		var found []string
		for iter.Next(ctx) {
			found = append(found, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		mu.Lock()
		keys = append(keys, found...)
		mu.Unlock()
		return nil
	}

	var err error
	if cluster, ok := c.rdb.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanNode(ctx, node)
		})
	} else {
		err = scanNode(ctx, c.rdb)
	}
	if err != nil {
		return nil, c.fail(ctx, "scan", pattern, start, err)
	}

	c.done(ctx, "scan", pattern, start, slog.Int("keys", len(keys)))
	return keys, nil
}

// Ping checks that the store answers.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return c.fail(ctx, "ping", "", start, err)
	}
	c.done(ctx, "ping", "", start)
	return nil
}

// Close releases all connections.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) done(ctx context.Context, op, key string, start time.Time, attrs ...slog.Attr) {
	c.record(op, "ok", start)
	args := []any{"op", op, "key", key}
	for _, a := range attrs {
		args = append(args, a)
	}
	slog.DebugContext(ctx, "kvstore operation", args...)
}

func (c *Client) fail(ctx context.Context, op, key string, start time.Time, err error) error {
	if errors.Is(err, redis.Nil) {
		c.record(op, "not_found", start)
		slog.DebugContext(ctx, "kvstore key not found", "op", op, "key", key)
		return &OpError{Op: op, Key: key, Kind: ErrNotFound}
	}

	c.record(op, "error", start)
	slog.WarnContext(ctx, "kvstore operation failed", "op", op, "key", key, "error", err)
	return &OpError{Op: op, Key: key, Kind: ErrUnavailable, Err: err}
}

func (c *Client) record(op, outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordKVOperation(op, outcome, time.Since(start))
	}
}
