// Package notify emits fire-and-forget status-change events for the excluded
// notification layer to consume. Delivery is best-effort: a failed publish is
// never allowed to fail the state transition that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event kinds.
const (
	KindMessageStatus    = "message_status"
	KindFriendshipStatus = "friendship_status"
	KindTimeoutCreated   = "timeout_created"
	KindTimeoutEnded     = "timeout_ended"
)

type Event struct {
	Kind     string    `json:"kind"`
	EntityID int64     `json:"entity_id"`
	ChildID  int64     `json:"child_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// RedisPublisher pushes events onto a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, redisURL, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	// Best-effort; a dropped event is acceptable, a blocked send is not.
	p.client.Publish(ctx, p.channel, data)
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher is used when redis is not configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
