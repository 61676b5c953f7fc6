// Package progress is an in-process pub/sub fan-out the batch runner
// publishes ProcessResult events to as each session finishes. The admin
// HTTP server's WebSocket handler subscribes and forwards events to
// connected operator tooling. There is no persistence: a subscriber that
// connects mid-batch simply misses earlier events, which is acceptable
// for an operational progress feed.
package progress

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// subscriberBuffer bounds how far a slow subscriber can lag before its
// events start being dropped.
const subscriberBuffer = 64

// Hub fans ProcessResult events out to subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan domain.ProcessResult
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan domain.ProcessResult)}
}

// Subscribe registers a new subscriber under id and returns its event
// channel. Calling Subscribe again with the same id replaces the prior
// subscription.
func (h *Hub) Subscribe(id string) <-chan domain.ProcessResult {
	ch := make(chan domain.ProcessResult, subscriberBuffer)

	h.mu.Lock()
	if existing, ok := h.subscribers[id]; ok {
		close(existing)
	}
	h.subscribers[id] = ch
	h.mu.Unlock()

	log.Debug().Str("subscriber_id", id).Msg("progress subscriber registered")
	return ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish fans result out to every subscriber. A subscriber whose buffer
// is full has the event dropped rather than blocking the batch runner.
func (h *Hub) Publish(result domain.ProcessResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- result:
		default:
			log.Warn().Str("subscriber_id", id).Msg("progress event dropped: subscriber buffer full")
		}
	}
}

// SubscriberCount reports the current number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
