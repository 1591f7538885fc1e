package core

import (
	"context"
	"time"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields not found in `allowed`.
// `allowed` maps API field names to column names.
func CleanOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			cleaned = append(cleaned, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return cleaned
}

// Locker serializes critical sections across goroutines or processes.
type Locker interface {
	// Lock blocks until the lock on `key` is acquired or ctx is done.
	// The returned func releases the lock.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Message is a payload received from a Broker topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Broker publishes messages to topics and fans them out to subscribers.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// NowFunc returns the current UTC time. Mockable.
var NowFunc = func() time.Time { return time.Now().UTC() }
