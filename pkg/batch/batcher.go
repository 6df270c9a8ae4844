package batch

import (
	"context"
	"sort"
	"sync"

	"github.com/bft-labs/querybatch/pkg/log"
)

// entry is one pending registration.
type entry struct {
	seq    uint64
	handle Handle
	query  Query
	future *Future
}

// Batcher collects queries and flushes them in merged requests.
// It is safe for concurrent use.
type Batcher struct {
	ctx       context.Context
	requester Requester
	scheduler Scheduler
	logger    log.Logger
	events    EventHandler
	maxConc   int

	mu         sync.Mutex
	pending    map[Handle]*entry
	seq        uint64
	lastHandle uint64
	depth      int
	closed     bool
	flushes    sync.WaitGroup

	totals counters
}

// New creates a batcher that sends requests through r.
// Every request is issued with ctx.
func New(ctx context.Context, r Requester, opts ...Option) *Batcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = NewTimerScheduler(0)
	}

	return &Batcher{
		ctx:       ctx,
		requester: r,
		scheduler: o.scheduler,
		logger:    o.logger,
		events:    o.eventHandler,
		maxConc:   o.maxConcurrent,
		pending:   make(map[Handle]*entry),
	}
}

// NewHandle returns a handle no other caller holds.
func (b *Batcher) NewHandle() Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastHandle++
	return Handle{id: b.lastHandle}
}

// Register queues q under h and schedules a flush.
// A query already pending under h is replaced and its future rejected with
// ErrSuperseded. Inside a Frame the flush is deferred until the frame ends.
func (b *Batcher) Register(h Handle, q Query) *Future {
	if h.IsZero() {
		return rejected(ErrInvalidQuery)
	}
	if err := q.validate(); err != nil {
		return rejected(err)
	}

	f := newFuture()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return rejected(ErrClosed)
	}
	var superseded *Future
	if prev, ok := b.pending[h]; ok {
		superseded = prev.future
	}
	b.seq++
	b.pending[h] = &entry{seq: b.seq, handle: h, query: q, future: f}
	schedule := b.depth == 0
	b.mu.Unlock()

	if superseded != nil {
		superseded.settle(nil, ErrSuperseded)
	}
	if schedule {
		b.scheduler.Schedule(b.flushScheduled)
	}
	return f
}

// Do registers q under a fresh handle and waits for its result.
func (b *Batcher) Do(ctx context.Context, q Query) (any, error) {
	return b.Register(b.NewHandle(), q).Wait(ctx)
}

// Frame runs fn as one synchronous frame: no flush starts while fn runs,
// and a single flush is scheduled when the outermost frame returns.
// Frames entered from different goroutines overlap.
func (b *Batcher) Frame(fn func()) {
	b.mu.Lock()
	b.depth++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth--
		schedule := b.depth == 0 && len(b.pending) > 0 && !b.closed
		b.mu.Unlock()

		if schedule {
			b.scheduler.Schedule(b.flushScheduled)
		}
	}()

	fn()
}

// Pending returns the number of queries waiting for a flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// TotalStats returns counters accumulated over every flush. A flush is
// counted before any of its futures settle.
func (b *Batcher) TotalStats() Stats {
	return b.totals.snapshot()
}

// Close cancels the scheduled flush, flushes what is pending and waits for
// in-flight flushes. Later registrations are rejected with ErrClosed.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.closed = true
	b.mu.Unlock()

	b.scheduler.Cancel()
	b.Flush()
	b.flushes.Wait()
	return nil
}

func (b *Batcher) flushScheduled() {
	b.Flush()
}

// take swaps out the registry and returns its entries in registration order.
func (b *Batcher) take() []*entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	b.flushes.Add(1)

	entries := make([]*entry, 0, len(b.pending))
	for _, e := range b.pending {
		entries = append(entries, e)
	}
	b.pending = make(map[Handle]*entry)

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}
