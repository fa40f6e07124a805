package mq

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisEmitter_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("TEST_REDIS_PASSWORD")})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan LifecycleEvent, 1)
	ready := make(chan struct{})
	go func() {
		_ = Subscribe(ctx, client, zap.NewNop(), func(evt LifecycleEvent) { got <- evt })
	}()
	go func() {
		// give the subscription a moment to register
		time.Sleep(200 * time.Millisecond)
		close(ready)
	}()
	<-ready

	NewRedisEmitter(client, zap.NewNop()).Emit(ctx, LifecycleEvent{Type: WebsitePublished, WebsiteID: "w1", Subdomain: "my-event"})

	select {
	case evt := <-got:
		assert.Equal(t, WebsitePublished, evt.Type)
		assert.Equal(t, "my-event", evt.Subdomain)
		assert.False(t, evt.At.IsZero())
	case <-ctx.Done():
		require.Fail(t, "no lifecycle event received")
	}
}

func TestRedisEmitter_UnreachableServerDoesNotPanic(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	assert.NotPanics(t, func() {
		NewRedisEmitter(client, zap.NewNop()).Emit(context.Background(), LifecycleEvent{Type: WebsiteDeleted})
	})
}
