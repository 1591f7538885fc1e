package pubsub

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
)

// RedisBroker relays messages between the instances sharing a Redis.
type RedisBroker struct {
	client *redis.Client
}

var _ core.Broker = (*RedisBroker)(nil)

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return errors.Wrapf(b.client.Publish(ctx, topic, payload).Err(), "publishing to %s", topic)
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (core.Subscription, error) {
	ps := b.client.Subscribe(ctx, topics...)
	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "subscribing")
	}

	sub := &redisSubscription{ps: ps, ch: make(chan core.Message, bufferSize), done: make(chan struct{})}
	go sub.relay(ctx)
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan core.Message
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) relay(ctx context.Context) {
	defer close(s.ch)
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case s.ch <- core.Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan core.Message {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
