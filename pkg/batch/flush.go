package batch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/querybatch/pkg/log"
)

// call is one request planned by a flush.
type call struct {
	key     string
	req     Request
	members []*entry
	// keys holds each member's batch value as a response key. Only set
	// for merged calls.
	keys   []string
	merged bool
}

// Flush dispatches every pending query now and waits for the responses.
// It is normally invoked by the scheduler.
func (b *Batcher) Flush() Stats {
	entries := b.take()
	if entries == nil {
		return Stats{}
	}
	defer b.flushes.Done()

	start := time.Now()
	calls := planCalls(entries)

	stats := Stats{
		Collected: len(entries),
		Sent:      len(calls),
		Saved:     len(entries) - len(calls),
	}
	// Counted before any future settles.
	b.totals.add(stats)

	var g errgroup.Group
	if b.maxConc > 0 {
		g.SetLimit(b.maxConc)
	}
	for _, c := range calls {
		c := c
		g.Go(func() error {
			b.dispatch(c)
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Debug("flushed queries",
		log.Int("collected", stats.Collected),
		log.Int("sent", stats.Sent),
		log.Int("saved", stats.Saved),
		log.Duration("duration", time.Since(start)),
	)
	if b.events != nil {
		b.events.OnFlush(stats)
	}
	return stats
}

// planCalls partitions entries into merge groups and plans one call per
// group, plus one per query that cannot be merged.
func planCalls(entries []*entry) []*call {
	groups := make(map[string][]*entry)
	var order []string
	var calls []*call

	for _, e := range entries {
		if e.query.BatchProperty == "" {
			calls = append(calls, standalone(e))
			continue
		}
		key := e.query.MergeKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	for _, key := range order {
		calls = append(calls, planGroup(key, groups[key])...)
	}
	return calls
}

func planGroup(key string, members []*entry) []*call {
	if len(members) == 1 {
		return []*call{standalone(members[0])}
	}

	var calls []*call
	var mergeable []*entry
	var values []any
	for _, m := range members {
		v, ok := m.query.batchValue()
		if !ok {
			calls = append(calls, standalone(m))
			continue
		}
		mergeable = append(mergeable, m)
		values = append(values, v)
	}

	switch len(mergeable) {
	case 0:
		return calls
	case 1:
		return append(calls, standalone(mergeable[0]))
	}

	keys := make([]string, len(values))
	seen := make(map[string]bool, len(values))
	var list []any
	for i, v := range values {
		// Text form, as on the wire and as the response keys it.
		keys[i] = fmt.Sprint(v)
		if seen[keys[i]] {
			continue
		}
		seen[keys[i]] = true
		list = append(list, v)
	}

	template := mergeable[0].query
	req := template.request()
	req.Params[template.BatchProperty] = list

	return append(calls, &call{
		key:     key,
		req:     req,
		members: mergeable,
		keys:    keys,
		merged:  true,
	})
}

func standalone(e *entry) *call {
	return &call{
		key:     e.query.MergeKey(),
		req:     e.query.request(),
		members: []*entry{e},
	}
}

// dispatch issues c and settles every member's future.
func (b *Batcher) dispatch(c *call) {
	body, err := b.requester.Do(b.ctx, c.req)
	if err != nil {
		b.logger.Warn("query request failed",
			log.String("merge_key", c.key),
			log.Int("members", len(c.members)),
			log.Err(err),
		)
		for _, m := range c.members {
			m.future.settle(nil, err)
		}
		return
	}

	for i, m := range c.members {
		q := &m.query
		if q.Transform != nil {
			m.future.settle(q.Transform(body, q))
			continue
		}

		share := body
		if c.merged {
			share, err = pick(body, c.keys[i])
			if err != nil {
				m.future.settle(nil, err)
				continue
			}
		}
		if q.Select != "" {
			res := gjson.GetBytes(share, q.Select)
			if !res.Exists() {
				m.future.settle(nil, fmt.Errorf("%w %q", ErrMissingSelection, q.Select))
				continue
			}
			share = json.RawMessage(res.Raw)
		}
		m.future.settle(share, nil)
	}
}

// pick returns the top-level member of body named key.
func pick(body json.RawMessage, key string) (json.RawMessage, error) {
	res := gjson.GetBytes(body, escapePath(key))
	if !res.Exists() {
		return nil, fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	return json.RawMessage(res.Raw), nil
}

// escapePath makes key usable as a single gjson path component.
func escapePath(key string) string {
	var sb strings.Builder
	sb.Grow(len(key))
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ',', ':', '[', '{':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
