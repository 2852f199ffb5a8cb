package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterLimits(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	clients := make([]*Client, 0, maxConnsPerUser)
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register(7, nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrUserConnsMax)
	assert.True(t, hub.IsOnline(7))
	assert.Equal(t, maxConnsPerUser, hub.ConnectionCount())

	for _, c := range clients {
		hub.UnregisterClient(c)
	}
	hub.UnregisterClient(clients[0])
	assert.False(t, hub.IsOnline(7))
	assert.Zero(t, hub.ConnectionCount())

	require.NoError(t, hub.Shutdown(context.Background()))
	_, err = hub.Register(8, nil)
	assert.ErrorIs(t, err, ErrServerFull)
}

func TestHub_Dispatch(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Dispatch(UserChannel(1), `{"type":"notification","payload":{}}`)
	assert.JSONEq(t, `{"type":"notification","payload":{}}`, string(<-alice.Send))
	assert.Empty(t, bob.Send)

	room, err := json.Marshal(RoomMessage{
		Recipients: []uint{1, 2, 3},
		Envelope:   Envelope{Type: FrameChatMessage, Payload: json.RawMessage(`{"seq":4}`)},
	})
	require.NoError(t, err)
	hub.Dispatch(RoomChannel(9), string(room))

	for _, c := range []*Client{alice, bob} {
		var env Envelope
		require.NoError(t, json.Unmarshal(<-c.Send, &env))
		assert.Equal(t, FrameChatMessage, env.Type)
		assert.JSONEq(t, `{"seq":4}`, string(env.Payload))
	}

	hub.Dispatch("notifications:user:abc", "x")
	hub.Dispatch(RoomChannel(9), "not json")
	hub.Dispatch("other", "x")
	assert.Empty(t, alice.Send)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	done := make(chan struct{})
	go func() {
		c.TrySend([]byte("overflow"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TrySend blocked")
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_StartWiringDeliversPublishedFrames(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	hub := NewHub()
	require.NoError(t, hub.StartWiring(ctx, n))

	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishUserEvent(ctx, 5, FrameNotification, map[string]any{"id": 1}))
	require.NoError(t, n.PublishRoomEvent(ctx, 3, []uint{5}, FrameChatMessage, map[string]any{"seq": 1}))

	var frames []Envelope
	assert.Eventually(t, func() bool {
		select {
		case raw := <-client.Send:
			var env Envelope
			if json.Unmarshal(raw, &env) == nil {
				frames = append(frames, env)
			}
		default:
		}
		return len(frames) == 2
	}, testEventuallyTimeout, testPollInterval)

	types := []string{}
	for _, f := range frames {
		types = append(types, f.Type)
	}
	assert.ElementsMatch(t, []string{FrameNotification, FrameChatMessage}, types)
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	ctx := context.Background()
	assert.NoError(t, n.PublishUser(ctx, 1, "x"))
	assert.NoError(t, n.PublishRoomEvent(ctx, 1, []uint{1}, FrameChatMessage, "x"))
	assert.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishUser(ctx, 1, "x"))
}

func TestChannels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:100", UserChannel(100))
	assert.Equal(t, "chat:room:5", RoomChannel(5))
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "first"))
	assert.Eventually(t, func() bool { return len(payloads) == 1 }, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(20 * time.Millisecond)
	<-payloads

	require.NoError(t, n.PublishUser(context.Background(), 1, "second"))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 20*testPollInterval, testPollInterval)
}
