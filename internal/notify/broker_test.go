package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) (string, bool) {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return "", false
	}
}

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker(4)
	ctx := context.Background()

	a, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)
	c, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "vehicles_deleted")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "vehicles", "id-1"))

	v, ok := receive(t, a)
	assert.True(t, ok)
	assert.Equal(t, "id-1", v)
	v, _ = receive(t, c)
	assert.Equal(t, "id-1", v)
	assert.Len(t, other.C(), 0)
}

func TestBroker_FullBufferDrops(t *testing.T) {
	b := NewBroker(1)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "vehicles", "first"))
	require.NoError(t, b.Publish(ctx, "vehicles", "second"))

	v, _ := receive(t, sub)
	assert.Equal(t, "first", v)
	assert.Len(t, sub.C(), 0)
}

func TestBroker_NoSubscribersLosesMessage(t *testing.T) {
	b := NewBroker(1)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "vehicles", "lost"))

	sub, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)
	assert.Len(t, sub.C(), 0)
}

func TestBroker_SubscriptionClose(t *testing.T) {
	b := NewBroker(1)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("vehicles"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, b.Subscribers("vehicles"))

	_, ok := receive(t, sub)
	assert.False(t, ok)
	require.NoError(t, b.Publish(ctx, "vehicles", "after"))
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(1)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "vehicles")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := receive(t, sub)
	assert.False(t, ok)
	require.NoError(t, sub.Close())

	assert.ErrorIs(t, b.Publish(ctx, "vehicles", "x"), ErrClosed)
	_, err = b.Subscribe(ctx, "vehicles")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTopics(t *testing.T) {
	topics := DefaultTopics()
	assert.Equal(t, "vehicles", topics.Channel(TopicUpserted))
	assert.Equal(t, "vehicles_deleted", topics.Channel(TopicDeleted))
	assert.Empty(t, topics.Channel(Topic("other")))
	assert.NoError(t, topics.Validate())

	assert.Error(t, Topics{Upserted: "x"}.Validate())
	assert.Error(t, Topics{Upserted: "x", Deleted: "x"}.Validate())
}
