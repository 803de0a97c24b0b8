package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus is the pub/sub fabric between service instances, backed by redis
// channels. Publish failures are the caller's to log; subscription runs
// until the context is canceled.
type Bus struct {
	Client *redis.Client
	Log    *zap.Logger
}

func NewBus(client *redis.Client, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{Client: client, Log: log}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.Client.Publish(ctx, topic, payload).Err()
}

// Subscribe consumes the topic on a background goroutine, invoking handler
// for every message. Handler errors are the handler's own business; a closed
// channel or canceled context ends the loop.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, payload []byte)) error {
	sub := b.Client.Subscribe(ctx, topic)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	b.Log.Info("bus_subscribed", zap.String("topic", topic))

	ch := sub.Channel()
	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				b.Log.Info("bus_subscription_closed", zap.String("topic", topic))
				return
			case m, ok := <-ch:
				if !ok {
					b.Log.Info("bus_channel_closed", zap.String("topic", topic))
					return
				}
				handler(ctx, []byte(m.Payload))
			}
		}
	}()
	return nil
}
