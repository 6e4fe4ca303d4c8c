// Package notify describes the change notifications the catalog publishes
// and the subscriber/publisher contracts every transport implements.
package notify

import (
	"context"
	"errors"
)

// Topic is a logical notification stream.
type Topic string

const (
	TopicUpserted Topic = "vehicle-upserted"
	TopicDeleted  Topic = "vehicle-deleted"
)

// Topics maps the logical topics to the channel names used on the wire.
type Topics struct {
	Upserted string `yaml:"upserted"`
	Deleted  string `yaml:"deleted"`
}

// DefaultTopics are the channel names the catalog publishes on.
func DefaultTopics() Topics {
	return Topics{Upserted: "vehicles", Deleted: "vehicles_deleted"}
}

func (t Topics) Channel(topic Topic) string {
	switch topic {
	case TopicUpserted:
		return t.Upserted
	case TopicDeleted:
		return t.Deleted
	}
	return ""
}

func (t Topics) Validate() error {
	if t.Upserted == "" || t.Deleted == "" {
		return errors.New("notify: both topic channels must be named")
	}
	if t.Upserted == t.Deleted {
		return errors.New("notify: upserted and deleted topics must use different channels")
	}
	return nil
}

// Notification is one message: the payload is the vehicle id as text.
type Notification struct {
	Topic   Topic
	Payload string
}

// Subscription delivers payloads until closed. C is closed after Close
// returns or when the underlying transport goes away.
type Subscription interface {
	C() <-chan string
	Close() error
}

// Subscriber opens a subscription. It returns only once the transport has
// confirmed the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}
