// Package pubsub implements core.Broker in process and on Redis pub/sub.
package pubsub

import (
	"context"
	"sync"

	"github.com/trezcool/shule/core"
)

const bufferSize = 16

// LocalBroker fans messages out to the subscribers of the same process.
// A subscriber lagging by more than its buffer misses messages.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*localSubscription
}

var _ core.Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[int]*localSubscription)}
}

func (b *LocalBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.topics[topic] {
			continue
		}
		select {
		case sub.ch <- core.Message{Topic: topic, Payload: payload}:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, topics ...string) (core.Subscription, error) {
	sub := &localSubscription{
		broker: b,
		topics: make(map[string]bool, len(topics)),
		ch:     make(chan core.Message, bufferSize),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

type localSubscription struct {
	id     int
	broker *LocalBroker
	topics map[string]bool
	ch     chan core.Message
	once   sync.Once
}

func (s *localSubscription) Messages() <-chan core.Message {
	return s.ch
}

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
		close(s.ch)
	})
	return nil
}

// Subscribers returns the number of open subscriptions.
func (b *LocalBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
