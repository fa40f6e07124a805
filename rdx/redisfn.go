package rdx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PublicTTL bounds how long a cached public website may be served.
const PublicTTL = 10 * time.Minute

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Cache holds serialized public website views keyed by subdomain.
type Cache interface {
	GetPublic(ctx context.Context, subdomain string) ([]byte, bool, error)
	SetPublic(ctx context.Context, subdomain string, data []byte) error
	InvalidatePublic(ctx context.Context, subdomain string) error
}

func PublicKey(subdomain string) string { return "website:public:" + subdomain }

// RedisCache is a Cache backed by Redis string keys.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = PublicTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetPublic(ctx context.Context, subdomain string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, PublicKey(subdomain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", PublicKey(subdomain), err)
	}
	return data, true, nil
}

func (c *RedisCache) SetPublic(ctx context.Context, subdomain string, data []byte) error {
	if err := c.client.Set(ctx, PublicKey(subdomain), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", PublicKey(subdomain), err)
	}
	return nil
}

func (c *RedisCache) InvalidatePublic(ctx context.Context, subdomain string) error {
	if subdomain == "" {
		return nil
	}
	if err := c.client.Del(ctx, PublicKey(subdomain)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", PublicKey(subdomain), err)
	}
	return nil
}

// NopCache never hits. Used when Redis is not configured.
type NopCache struct{}

func (NopCache) GetPublic(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopCache) SetPublic(context.Context, string, []byte) error         { return nil }
func (NopCache) InvalidatePublic(context.Context, string) error          { return nil }

// Denylist remembers revoked access tokens until they would have expired.
type Denylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	Revoked(ctx context.Context, token string) (bool, error)
}

func TokenKey(token string) string { return "auth:token:" + token }

type RedisDenylist struct {
	client redis.UniversalClient
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, TokenKey(token), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) Revoked(ctx context.Context, token string) (bool, error) {
	n, err := d.client.Exists(ctx, TokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check token: %w", err)
	}
	return n > 0, nil
}

// NopDenylist revokes nothing.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }
func (NopDenylist) Revoked(context.Context, string) (bool, error)       { return false, nil }
