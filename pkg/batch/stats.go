package batch

import "go.uber.org/atomic"

// Stats describes the work done by one or more flushes.
type Stats struct {
	// Collected is the number of queries taken from the registry.
	Collected int
	// Sent is the number of requests issued for them.
	Sent int
	// Saved is Collected minus Sent.
	Saved int
}

// EventHandler observes batcher activity.
type EventHandler interface {
	OnFlush(stats Stats)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(stats Stats)

// OnFlush calls f(stats).
func (f EventHandlerFunc) OnFlush(stats Stats) { f(stats) }

type counters struct {
	collected atomic.Int64
	sent      atomic.Int64
}

func (c *counters) add(s Stats) {
	c.collected.Add(int64(s.Collected))
	c.sent.Add(int64(s.Sent))
}

func (c *counters) snapshot() Stats {
	collected := int(c.collected.Load())
	sent := int(c.sent.Load())
	return Stats{Collected: collected, Sent: sent, Saved: collected - sent}
}
