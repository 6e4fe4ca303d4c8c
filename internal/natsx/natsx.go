// Package natsx carries vehicle change notifications over core NATS
// subjects. Delivery is at-most-once, like the Redis transport.
package natsx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yourorg/vehicle-search/internal/notify"
)

// connectFunc is swapped in tests.
var connectFunc = nats.Connect

const subBuffer = 256

type Conn struct {
	nc *nats.Conn
}

var (
	_ notify.Subscriber = (*Conn)(nil)
	_ notify.Publisher  = (*Conn)(nil)
)

func Connect(url string, name string) (*Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if name == "" {
		name = "vehicle-search"
	}
	nc, err := connectFunc(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &Conn{nc: nc}, nil
}

// Subscribe returns after the server has acknowledged the interest.
func (c *Conn) Subscribe(ctx context.Context, subject string) (notify.Subscription, error) {
	in := make(chan *nats.Msg, subBuffer)
	sub, err := c.nc.ChanSubscribe(subject, in)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats subscribe %s: flush: %w", subject, err)
	}
	s := &subscription{sub: sub, out: make(chan string), done: make(chan struct{})}
	go s.pump(in)
	return s, nil
}

func (c *Conn) Publish(_ context.Context, subject, payload string) error {
	if err := c.nc.Publish(subject, []byte(payload)); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and then closes the connection.
func (c *Conn) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	return c.nc.Drain()
}

type subscription struct {
	sub  *nats.Subscription
	out  chan string
	done chan struct{}
	once sync.Once
}

func (s *subscription) C() <-chan string { return s.out }

// The nats client never closes a channel handed to ChanSubscribe, so done
// is the only way out of the loop.
func (s *subscription) pump(in <-chan *nats.Msg) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m := <-in:
			select {
			case s.out <- string(m.Data):
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
		if s.sub.IsValid() {
			err = s.sub.Unsubscribe()
		}
	})
	return err
}
