package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainbooking "grabit/internal/domain/booking"
)

const DefaultRedisChannel = "booking_updates"

// RedisNotifier fans status changes out over Redis pub/sub for the
// real-time layer.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

type statusMessage struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	At        string `json:"occurred_at"`
}

func (n *RedisNotifier) Publish(ctx context.Context, ev domainbooking.BookingStatusChanged) error {
	payload, err := json.Marshal(statusMessage{
		Type:      ev.EventName(),
		BookingID: string(ev.BookingID),
		Status:    ev.Status.String(),
		At:        ev.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, string(payload)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", n.channel, err)
	}
	return nil
}
