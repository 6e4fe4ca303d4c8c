package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourorg/vehicle-search/internal/notify"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// ErrSubscriptionLost is returned by Run when a transport ends a
// subscription the coordinator did not close.
var ErrSubscriptionLost = errors.New("indexer: subscription lost")

// State is where a topic subscription is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubscribed State = "subscribed"
	StateHandling   State = "handling"
)

type Options struct {
	// Workers bounds the number of messages handled at once across both
	// topics. One worker gives in-order handling.
	Workers int
	// HandlerTimeout bounds one fetch-map-write sequence.
	HandlerTimeout time.Duration
	// ShutdownTimeout is how long in-flight handlers may keep running
	// after shutdown begins before their contexts are cancelled.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 15 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type topicState struct {
	subscribed atomic.Bool
	inflight   atomic.Int64
}

// Coordinator relays change notifications into index mutations. Every
// message is handled on its own and ends in at most one mutation; failures
// are logged and dropped.
type Coordinator struct {
	sub    notify.Subscriber
	syncer *Syncer
	topics notify.Topics
	opts   Options
	logger *slog.Logger

	stats   Stats
	states  map[notify.Topic]*topicState
	running atomic.Bool
}

func New(sub notify.Subscriber, syncer *Syncer, topics notify.Topics, opts Options) *Coordinator {
	opts.applyDefaults()
	return &Coordinator{
		sub:    sub,
		syncer: syncer,
		topics: topics,
		opts:   opts,
		logger: opts.Logger,
		states: map[notify.Topic]*topicState{
			notify.TopicUpserted: {},
			notify.TopicDeleted:  {},
		},
	}
}

// Run subscribes to both topics and handles messages until ctx is done.
// It fails fast when a subscription cannot be established. On shutdown
// both subscriptions are closed before in-flight handlers are waited on.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("indexer: coordinator already running")
	}
	defer c.running.Store(false)

	if err := c.topics.Validate(); err != nil {
		return err
	}

	order := []notify.Topic{notify.TopicUpserted, notify.TopicDeleted}
	subs := make(map[notify.Topic]notify.Subscription, len(order))
	closeAll := func() {
		for topic, s := range subs {
			if err := s.Close(); err != nil {
				c.logger.Warn("closing subscription", "topic", topic, "error", err)
			}
			c.states[topic].subscribed.Store(false)
		}
	}
	for _, topic := range order {
		channel := c.topics.Channel(topic)
		s, err := c.sub.Subscribe(ctx, channel)
		if err != nil {
			closeAll()
			return fmt.Errorf("indexer: subscribe %s (%s): %w", topic, channel, err)
		}
		subs[topic] = s
		c.states[topic].subscribed.Store(true)
		c.logger.Info("subscribed", "topic", topic, "channel", channel)
	}

	// Handler contexts outlive ctx so in-flight work can finish during the
	// shutdown grace period.
	work, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	p := newPool(work, c.opts.Workers, c.opts.HandlerTimeout, c.logger)

	lost := make(chan notify.Topic, len(order))
	var loops sync.WaitGroup
	for _, topic := range order {
		loops.Add(1)
		go func(topic notify.Topic, s notify.Subscription) {
			defer loops.Done()
			if !c.receive(ctx, topic, s, p) {
				lost <- topic
			}
		}(topic, subs[topic])
	}

	var runErr error
	select {
	case <-ctx.Done():
		c.logger.Info("indexer shutting down")
	case topic := <-lost:
		runErr = fmt.Errorf("%w: %s", ErrSubscriptionLost, topic)
		c.logger.Error("subscription ended unexpectedly", "topic", topic)
	}

	closeAll()
	loops.Wait()

	drained := make(chan struct{})
	go func() {
		p.stop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(c.opts.ShutdownTimeout):
		c.logger.Warn("shutdown timeout reached, cancelling in-flight handlers")
		cancelWork()
		<-drained
	}
	return runErr
}

// receive feeds one subscription into the pool. It returns false when the
// transport closed the subscription while ctx was still live.
func (c *Coordinator) receive(ctx context.Context, topic notify.Topic, s notify.Subscription, p *pool) bool {
	handle := c.HandleUpsert
	if topic == notify.TopicDeleted {
		handle = c.HandleDelete
	}
	for {
		select {
		case <-ctx.Done():
			return true
		case payload, ok := <-s.C():
			if !ok {
				return ctx.Err() != nil
			}
			c.stats.received.Add(1)
			accepted := p.submit(ctx, func(jctx context.Context) {
				if ctx.Err() != nil {
					c.stats.dropped.Add(1)
					return
				}
				handle(jctx, payload)
			})
			if !accepted {
				c.stats.dropped.Add(1)
			}
		}
	}
}

// HandleUpsert handles one "vehicle-upserted" payload.
func (c *Coordinator) HandleUpsert(ctx context.Context, payload string) Outcome {
	return c.handle(ctx, notify.TopicUpserted, payload, c.syncer.Sync)
}

// HandleDelete handles one "vehicle-deleted" payload.
func (c *Coordinator) HandleDelete(ctx context.Context, payload string) Outcome {
	return c.handle(ctx, notify.TopicDeleted, payload, c.syncer.Remove)
}

func (c *Coordinator) handle(ctx context.Context, topic notify.Topic, payload string, op func(context.Context, vehicle.ID) (Outcome, error)) Outcome {
	st := c.states[topic]
	st.inflight.Add(1)
	defer st.inflight.Add(-1)
	start := time.Now()

	id, err := vehicle.ParseID(payload)
	if err != nil {
		c.stats.record(OutcomeMalformed)
		c.logger.Warn("dropping malformed notification",
			"topic", topic,
			"payload", payload,
			"outcome", OutcomeMalformed,
		)
		return OutcomeMalformed
	}

	outcome, err := op(ctx, id)
	c.stats.record(outcome)
	attrs := []any{
		"topic", topic,
		"vehicle_id", id.String(),
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil:
		c.logger.Error("notification dropped", append(attrs, "error", err)...)
	case outcome == OutcomeNotFound:
		c.logger.Info("vehicle not in catalog, index untouched", attrs...)
	default:
		c.logger.Info("notification handled", attrs...)
	}
	return outcome
}

// State reports the lifecycle state of topic's subscription.
func (c *Coordinator) State(topic notify.Topic) State {
	st, ok := c.states[topic]
	if !ok || !st.subscribed.Load() {
		return StateIdle
	}
	if st.inflight.Load() > 0 {
		return StateHandling
	}
	return StateSubscribed
}

func (c *Coordinator) Stats() Snapshot { return c.stats.Snapshot() }

// Syncer exposes the sync sequence for out-of-band repair.
func (c *Coordinator) Syncer() *Syncer { return c.syncer }
