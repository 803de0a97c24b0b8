package redisstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	redisstore "moneyrates-service/internal/infrastructure/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBus_PublishSubscribeRoundTrip(t *testing.T) {
	client := testRedis(t)
	bus := redisstore.NewBus(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got [][]byte
	received := make(chan struct{}, 10)

	err := bus.Subscribe(ctx, "items.updates", func(_ context.Context, payload []byte) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		received <- struct{}{}
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "items.updates", []byte(`{"item":{"code":"BTC"}}`)))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"item":{"code":"BTC"}}`, string(got[0]))
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	client := testRedis(t)
	bus := redisstore.NewBus(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 10)
	require.NoError(t, bus.Subscribe(ctx, "items.updates", func(_ context.Context, payload []byte) {
		received <- payload
	}))

	require.NoError(t, bus.Publish(ctx, "other.topic", []byte("noise")))
	require.NoError(t, bus.Publish(ctx, "items.updates", []byte("signal")))

	select {
	case payload := <-received:
		require.Equal(t, "signal", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}
}

func TestBus_SubscribeFailsOnClosedClient(t *testing.T) {
	client := testRedis(t)
	require.NoError(t, client.Close())

	bus := redisstore.NewBus(client, nil)
	err := bus.Subscribe(context.Background(), "items.updates", func(context.Context, []byte) {})
	require.Error(t, err)
}
