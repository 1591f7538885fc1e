package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func receive(t *testing.T, sub core.Subscription) (core.Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return core.Message{}, false
}

func TestLocalBroker_topics(t *testing.T) {
	b := NewLocalBroker()
	ctx := context.Background()

	school, err := b.Subscribe(ctx, "school:1")
	require.NoError(t, err)
	both, err := b.Subscribe(ctx, "school:1", "user:1")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Subscribers())

	require.NoError(t, b.Publish(ctx, "user:1", []byte("to user")))
	require.NoError(t, b.Publish(ctx, "school:2", []byte("elsewhere")))
	require.NoError(t, b.Publish(ctx, "school:1", []byte("to school")))

	msg, ok := receive(t, both)
	require.True(t, ok)
	assert.Equal(t, core.Message{Topic: "user:1", Payload: []byte("to user")}, msg)
	msg, _ = receive(t, both)
	assert.Equal(t, "school:1", msg.Topic)

	msg, _ = receive(t, school)
	assert.Equal(t, []byte("to school"), msg.Payload)
	assert.Empty(t, school.Messages(), "school:1 only")
}

func TestLocalBroker_close(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, "t")
	require.NoError(t, err)
	other, err := b.Subscribe(context.Background(), "t")
	require.NoError(t, err)

	require.NoError(t, other.Close())
	require.NoError(t, other.Close())
	_, ok := receive(t, other)
	assert.False(t, ok, "closed subscriptions are drained")

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, ok = receive(t, sub)
	assert.False(t, ok)

	assert.NoError(t, b.Publish(context.Background(), "t", []byte("nobody")))
}

func TestLocalBroker_slowSubscriber(t *testing.T) {
	b := NewLocalBroker()
	sub, err := b.Subscribe(context.Background(), "t")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < bufferSize+5; i++ {
		require.NoError(t, b.Publish(context.Background(), "t", []byte{byte(i)}))
	}
	assert.Len(t, sub.Messages(), bufferSize, "messages over the buffer are dropped")
}
