package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel carries website and event lifecycle notifications.
const Channel = "website-events"

const (
	WebsiteCloned         = "website-cloned"
	WebsiteSectionUpdated = "website-section-updated"
	WebsitePublished      = "website-published"
	WebsiteUnpublished    = "website-unpublished"
	WebsiteDeleted        = "website-deleted"
	EventDeleted          = "event-deleted"
)

// LifecycleEvent is published after the change it describes has committed.
type LifecycleEvent struct {
	Type      string    `json:"type"`
	WebsiteID string    `json:"websiteId,omitempty"`
	EventID   string    `json:"eventId,omitempty"`
	Section   string    `json:"section,omitempty"`
	Subdomain string    `json:"subdomain,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	At        time.Time `json:"at"`
}

// Emitter publishes lifecycle events. Emit never fails the caller.
type Emitter interface {
	Emit(ctx context.Context, evt LifecycleEvent)
}

type RedisEmitter struct {
	client redis.UniversalClient
	log    *zap.Logger
}

func NewRedisEmitter(client redis.UniversalClient, log *zap.Logger) *RedisEmitter {
	return &RedisEmitter{client: client, log: log}
}

func (e *RedisEmitter) Emit(ctx context.Context, evt LifecycleEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		e.log.Warn("marshal lifecycle event", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	// the request may already be finishing; publishing should not depend on it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.client.Publish(ctx, Channel, data).Err(); err != nil {
		e.log.Warn("publish lifecycle event",
			zap.String("type", evt.Type), zap.String("website_id", evt.WebsiteID), zap.Error(err))
		return
	}
	e.log.Debug("lifecycle event published", zap.String("type", evt.Type), zap.String("website_id", evt.WebsiteID))
}

// Subscribe delivers decoded events to fn until ctx is done.
func Subscribe(ctx context.Context, client redis.UniversalClient, log *zap.Logger, fn func(LifecycleEvent)) error {
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt LifecycleEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warn("undecodable lifecycle event", zap.Error(err))
				continue
			}
			fn(evt)
		}
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, LifecycleEvent) {}
