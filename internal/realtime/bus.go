package realtime

import (
	"log"
	"sync"

	"github.com/aurora92101/BetLicense/internal/stats"
)

// subscriptionBuffer is the per-subscriber event queue depth. A subscriber
// that falls this far behind loses events; it recovers current state from
// the snapshot fetch on reconnect.
const subscriptionBuffer = 64

// Subscription is a handle onto one subscriber slot of a bus channel.
// Events arrive on C in publish order. C is closed by Unsubscribe.
type Subscription struct {
	C       <-chan RoomEvent
	ch      chan RoomEvent
	channel string
}

// Channel returns the bus channel this subscription is registered on.
func (s *Subscription) Channel() string {
	return s.channel
}

// EventBus is an in-process publish/subscribe registry keyed by channel
// name. It provides best-effort live delivery only: publishing to a
// channel with no subscribers drops the event, and publishers never block
// on slow consumers. The bus is explicitly single-process; horizontal
// scaling needs an external fan-out layer.
type EventBus struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewEventBus(logger *log.Logger, sp stats.StatsProvider) *EventBus {
	sp.RegisterMetric(stats.ActiveSubscriptions)
	sp.RegisterMetric(stats.EventsPublished)
	sp.RegisterMetric(stats.EventsDropped)

	return &EventBus{
		log:   logger,
		stats: sp,
		subs:  make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber on channel. It never blocks.
func (b *EventBus) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		ch:      make(chan RoomEvent, subscriptionBuffer),
		channel: channel,
	}
	sub.C = sub.ch

	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[channel]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[channel] = set
	}
	set[sub] = struct{}{}

	b.stats.Incr(stats.ActiveSubscriptions)
	return sub
}

// Unsubscribe removes sub from its channel and closes its event channel.
// It is idempotent: removing an already-removed subscription is a no-op.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[sub.channel]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}

	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.channel)
	}

	// Safe to close here: publishers send while holding the read lock, so
	// no send can race this close.
	close(sub.ch)
	b.stats.Decr(stats.ActiveSubscriptions)
}

// Publish delivers ev to every current subscriber of channel. Each
// subscriber sees its own events in publish order; fan-out order across
// subscribers is unspecified. A subscriber with a full buffer misses the
// event without affecting delivery to the others.
func (b *EventBus) Publish(channel string, ev RoomEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[channel] {
		select {
		case sub.ch <- ev:
		default:
			b.log.Printf("dropping %s event on %q: subscriber buffer full", ev.Kind(), channel)
			b.stats.Incr(stats.EventsDropped)
		}
	}

	b.stats.Incr(stats.EventsPublished)
}

// SubscriberCount reports the number of live subscriptions on channel.
func (b *EventBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[channel])
}
