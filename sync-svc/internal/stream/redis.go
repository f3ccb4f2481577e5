package stream

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "events:"

// RedisChannel is the pub/sub channel the backend fans restaurant events out
// on.
func RedisChannel(restaurantID string) string {
	return redisChannelPrefix + restaurantID
}

// RedisDialer reads the same envelopes straight from the backend's Redis
// fan-out channel. Role does not narrow the channel.
type RedisDialer struct {
	Client *redis.Client
}

func (d RedisDialer) Dial(ctx context.Context, scope Scope) (Conn, error) {
	sub := d.Client.Subscribe(ctx, RedisChannel(scope.RestaurantID))
	// Wait for the subscription confirmation so Connected means subscribed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	return &redisConn{sub: sub}, nil
}

type redisConn struct {
	sub *redis.PubSub
}

func (c *redisConn) ReadFrame(ctx context.Context) (string, error) {
	msg, err := c.sub.ReceiveMessage(ctx)
	if err != nil {
		return "", err
	}
	return msg.Payload, nil
}

func (c *redisConn) Close() error {
	return c.sub.Close()
}
