package events

import (
	"sync"
	"sync/atomic"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// subscriptionBuffer is the per-subscription channel depth. A subscriber that
// falls further behind than this loses messages rather than stalling
// publishers.
const subscriptionBuffer = 64

// Hub is the in-process Bus implementation. Delivery within a topic preserves
// publish order per subscriber; there is no ordering guarantee across topics.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}

	dropped atomic.Int64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives messages for a set of topics on C. Close must be
// called when the consumer is done; Add and Remove adjust the topic set of a
// live subscription.
type Subscription struct {
	C <-chan *wire.Outbound

	hub    *Hub
	ch     chan *wire.Outbound
	mu     sync.Mutex
	topics map[string]struct{}
	closed bool
}

// Subscribe registers a subscription for the given topics.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan *wire.Outbound, subscriptionBuffer)
	sub := &Subscription{
		C:      ch,
		hub:    h,
		ch:     ch,
		topics: make(map[string]struct{}, len(topics)),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		sub.topics[t] = struct{}{}
		h.attach(t, sub)
	}
	return sub
}

// Publish delivers msg to every subscription of topic without blocking. A
// full subscriber buffer counts as a drop. Delivery happens under the hub
// read lock: Close detaches and closes the channel under the write lock, so a
// publisher can never send on a closed channel.
func (h *Hub) Publish(topic string, msg *wire.Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns the number of messages discarded because a subscriber's
// buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// attach links sub to topic. Caller holds h.mu.
func (h *Hub) attach(topic string, sub *Subscription) {
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.topics[topic] = set
	}
	set[sub] = struct{}{}
}

// detach unlinks sub from topic, pruning empty topic sets. Caller holds h.mu.
func (h *Hub) detach(topic string, sub *Subscription) {
	if set, ok := h.topics[topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Add subscribes to an additional topic. A session does this when it observes
// guild_create, so events for the new guild start flowing immediately.
func (s *Subscription) Add(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, dup := s.topics[topic]; dup {
		return
	}
	s.topics[topic] = struct{}{}
	s.hub.mu.Lock()
	s.hub.attach(topic, s)
	s.hub.mu.Unlock()
}

// Remove unsubscribes from a topic, e.g. after guild_remove.
func (s *Subscription) Remove(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.topics[topic]; !ok {
		return
	}
	delete(s.topics, topic)
	s.hub.mu.Lock()
	s.hub.detach(topic, s)
	s.hub.mu.Unlock()
}

// Close detaches the subscription from all topics and closes C.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.hub.mu.Lock()
	for t := range s.topics {
		s.hub.detach(t, s)
	}
	close(s.ch)
	s.hub.mu.Unlock()
}
