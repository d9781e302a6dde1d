package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

func event(id string) metaclip.Event {
	return metaclip.Event{Kind: metaclip.EventKindCreated, ItemID: id, At: time.Now().UTC()}
}

func TestPublishDeliversInOrder(t *testing.T) {
	h := New()
	defer h.Close()

	sub := h.Subscribe()

	for i := 0; i < 10; i++ {
		h.Publish(event(fmt.Sprintf("item-%d", i)))
	}

	for i := 0; i < 10; i++ {
		got := <-sub.Events()
		assert.Equal(t, fmt.Sprintf("item-%d", i), got.ItemID)
	}
}

func TestPublishFanOut(t *testing.T) {
	h := New()
	defer h.Close()

	first := h.Subscribe()
	second := h.Subscribe()
	require.Equal(t, 2, h.Len())

	h.Publish(event("shared"))

	assert.Equal(t, "shared", (<-first.Events()).ItemID)
	assert.Equal(t, "shared", (<-second.Events()).ItemID)
}

func TestOverflowDropsSubscriber(t *testing.T) {
	h := New(WithBufferSize(2))
	defer h.Close()

	slow := h.Subscribe()

	// Fill the buffer, then overflow it. Publish must return without a
	// receiver on the other end.
	for i := 0; i < 5; i++ {
		h.Publish(event(fmt.Sprintf("item-%d", i)))
	}

	assert.Equal(t, 0, h.Len())

	// The buffered events remain readable, then the channel reports closure.
	assert.Equal(t, "item-0", (<-slow.Events()).ItemID)
	assert.Equal(t, "item-1", (<-slow.Events()).ItemID)
	_, ok := <-slow.Events()
	assert.False(t, ok)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New()
	defer h.Close()

	sub := h.Subscribe()
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.Len())

	// A second call must not panic on the already-closed channel.
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := New()
	defer h.Close()

	// No receiver anywhere; must return immediately.
	h.Publish(event("nobody-listening"))
	assert.Equal(t, 0, h.Len())
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	h := New()

	first := h.Subscribe()
	second := h.Subscribe()

	h.Close()

	_, ok := <-first.Events()
	assert.False(t, ok)
	_, ok = <-second.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	// Post-close operations are inert.
	h.Publish(event("late"))
	h.Close()

	late := h.Subscribe()
	_, ok = <-late.Events()
	assert.False(t, ok)
}

func TestSubscriptionCreatedAt(t *testing.T) {
	h := New()
	defer h.Close()

	before := time.Now().UTC().Add(-time.Second)
	sub := h.Subscribe()
	after := time.Now().UTC().Add(time.Second)

	assert.True(t, sub.CreatedAt().After(before))
	assert.True(t, sub.CreatedAt().Before(after))
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(WithMetrics(reg))
	defer h.Close()

	sub := h.Subscribe()
	h.Publish(event("observed"))
	h.Unsubscribe(sub)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["metaclip_hub_subscribers_active"])
	assert.True(t, names["metaclip_hub_events_published_total"])
}
