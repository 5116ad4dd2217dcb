// Package memory contains an in-memory notifier for tests and for
// deployments without a Pub/Sub topic configured.
package memory

import (
	"context"
	"sync"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
)

// Notifier records published shard events for inspection.
type Notifier struct {
	mu     sync.RWMutex
	events []crawl.ShardEvent
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// ShardPublished records the event.
func (n *Notifier) ShardPublished(_ context.Context, event crawl.ShardEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// Events returns the recorded events.
func (n *Notifier) Events() []crawl.ShardEvent {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]crawl.ShardEvent, len(n.events))
	copy(out, n.events)
	return out
}
