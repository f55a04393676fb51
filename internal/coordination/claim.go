// Package coordination provides per-domain claims so that workers in
// different processes avoid checking the same domain at the same time.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
)

const (
	defaultKeyPrefix = "domain-checker:claim:"
	defaultTTL       = 5 * time.Minute
)

// ErrClaimNotHeld is returned when releasing a claim owned by someone else.
var ErrClaimNotHeld = errors.New("claim not held")

// Claimer hands out short-lived exclusive claims on domains.
type Claimer interface {
	// Claim returns true when the caller now holds the claim on name.
	Claim(ctx context.Context, name string) (bool, error)
	// Release gives up a claim held by the caller.
	Release(ctx context.Context, name string) error
}

// NopClaimer grants every claim. It is used when coordination is disabled.
type NopClaimer struct{}

// Claim always succeeds.
func (NopClaimer) Claim(context.Context, string) (bool, error) { return true, nil }

// Release does nothing.
func (NopClaimer) Release(context.Context, string) error { return nil }

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisClaimer stores claims as SET NX PX keys holding a per-process token.
type RedisClaimer struct {
	client redis.Cmdable
	prefix string
	token  string
	ttl    time.Duration
}

var _ Claimer = (*RedisClaimer)(nil)

// NewRedisClaimer creates a claimer on client.
func NewRedisClaimer(client redis.Cmdable, cfg config.CoordinationConfig) *RedisClaimer {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisClaimer{
		client: client,
		prefix: prefix,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (c *RedisClaimer) key(name string) string { return c.prefix + name }

// Claim sets the claim key if nobody holds it. Re-claiming a domain this
// process already holds succeeds.
func (c *RedisClaimer) Claim(ctx context.Context, name string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(name), c.token, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", name, err)
	}
	if ok {
		return true, nil
	}

	holder, err := c.client.Get(ctx, c.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read claim %s: %w", name, err)
	}
	return holder == c.token, nil
}

// Release deletes the claim if this process holds it.
func (c *RedisClaimer) Release(ctx context.Context, name string) error {
	n, err := releaseScript.Run(ctx, c.client, []string{c.key(name)}, c.token).Int()
	if err != nil {
		return fmt.Errorf("release claim %s: %w", name, err)
	}
	if n == 0 {
		return ErrClaimNotHeld
	}
	return nil
}

// NewRedisClient connects to the configured Redis and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg config.CoordinationConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
