package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Broker operations after Close.
var ErrClosed = errors.New("notify: broker closed")

// Broker is an in-process Subscriber and Publisher. Publishing never
// blocks: a subscriber whose buffer is full misses the message, the same
// fire-and-forget contract as the networked transports.
type Broker struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[*brokerSub]struct{}
	closed bool
}

var (
	_ Subscriber = (*Broker)(nil)
	_ Publisher  = (*Broker)(nil)
)

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Broker{buffer: buffer, subs: make(map[string]map[*brokerSub]struct{})}
}

func (b *Broker) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &brokerSub{b: b, channel: channel, ch: make(chan string, b.buffer)}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*brokerSub]struct{})
	}
	b.subs[channel][s] = struct{}{}
	return s, nil
}

// Publish delivers payload to every current subscriber of channel. With no
// subscribers the message is lost.
func (b *Broker) Publish(_ context.Context, channel, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.subs[channel] {
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribers reports how many live subscriptions channel has.
func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// Close ends every subscription.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
	}
	b.subs = nil
	return nil
}

type brokerSub struct {
	b       *Broker
	channel string
	ch      chan string
	once    sync.Once
}

func (s *brokerSub) C() <-chan string { return s.ch }

func (s *brokerSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		set, ok := s.b.subs[s.channel]
		if !ok {
			return
		}
		if _, live := set[s]; !live {
			return
		}
		delete(set, s)
		if len(set) == 0 {
			delete(s.b.subs, s.channel)
		}
		close(s.ch)
	})
	return nil
}
