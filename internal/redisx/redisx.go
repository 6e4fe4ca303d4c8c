// Package redisx carries vehicle change notifications over Redis pub/sub,
// the transport the catalog publishes on.
package redisx

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/vehicle-search/internal/notify"
)

// pubSub is the part of *redis.PubSub a subscription uses.
type pubSub interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

type Client struct {
	Rdb *redis.Client

	// subscribe is swapped in tests.
	subscribe func(ctx context.Context, channel string) pubSub
}

var (
	_ notify.Subscriber = (*Client)(nil)
	_ notify.Publisher  = (*Client)(nil)
)

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	c := &Client{Rdb: rdb}
	c.subscribe = func(ctx context.Context, channel string) pubSub {
		return rdb.Subscribe(ctx, channel)
	}
	return c
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	return c.Rdb.Publish(ctx, channel, payload).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

// Subscribe returns once Redis has confirmed the subscription, so a caller
// that gets a Subscription back is known to be listening.
func (c *Client) Subscribe(ctx context.Context, channel string) (notify.Subscription, error) {
	ps := c.subscribe(ctx, channel)
	msg, err := ps.Receive(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	if _, ok := msg.(*redis.Subscription); !ok {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: unexpected reply %T", channel, msg)
	}

	s := &subscription{ps: ps, out: make(chan string), done: make(chan struct{})}
	go s.pump(ps.Channel())
	return s, nil
}

type subscription struct {
	ps   pubSub
	out  chan string
	done chan struct{}
	once sync.Once
}

func (s *subscription) C() <-chan string { return s.out }

func (s *subscription) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- m.Payload:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
