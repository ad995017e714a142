// Package redis backs the short-lived shared state of the marketplace: auth
// rate-limit counters, Google OAuth state tokens and cron fire claims. All keys
// live under the "km:" namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// Key families.
const (
	familyRateLimit  = "rate_limit"
	familyOAuthState = "oauth_state"
	familyLock       = "lock"
)

// ErrNotConfigured is returned by New when neither a URL nor an address is set.
var ErrNotConfigured = errors.New("redis url or address is required")

// commands is the slice of go-redis used here; tests substitute a fake.
type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

type Client struct {
	cmds   commands
	closer func() error
}

// Configured reports whether the config points at a redis server.
func Configured(cfg config.RedisConfig) bool {
	return cfg.URL != "" || cfg.Address != ""
}

// New dials redis and pings it once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connection established")
	}
	return &Client{cmds: rdb, closer: rdb.Close}, nil
}

// optionsFromConfig starts from the URL when given; explicit pool settings
// fill whatever the URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if !Configured(cfg) {
		return nil, ErrNotConfigured
	}
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	}
	setDefault(&opts.PoolSize, cfg.PoolSize)
	setDefault(&opts.MinIdleConns, cfg.MinIdleConns)
	setDefault(&opts.DialTimeout, cfg.DialTimeout)
	setDefault(&opts.ReadTimeout, cfg.ReadTimeout)
	setDefault(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setDefault[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func key(family, name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "km:" + family
	}
	return "km:" + family + ":" + name
}

// LockKey namespaces a distributed lock name.
func (c *Client) LockKey(name string) string {
	return key(familyLock, name)
}

// SetNX stores value at key only when the key is absent.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL bumps a fixed-window counter. The window starts at the first
// hit; ExpireNX also heals a counter whose first EXPIRE was lost.
func (c *Client) IncrWithTTL(ctx context.Context, scope string, window time.Duration) (int64, error) {
	k := key(familyRateLimit, scope)
	count, err := c.cmds.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if window > 0 {
		if err := c.cmds.ExpireNX(ctx, k, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// SaveOAuthState records a pending OAuth state until it is consumed or expires.
func (c *Client) SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error {
	fresh, err := c.SetNX(ctx, key(familyOAuthState, state), "1", ttl)
	if err != nil {
		return err
	}
	if !fresh {
		return errors.New("oauth state collision")
	}
	return nil
}

// ConsumeOAuthState deletes the state and reports whether it was pending.
func (c *Client) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	err := c.cmds.GetDel(ctx, key(familyOAuthState, state)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.cmds.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
