// Package batch merges same-shaped API queries into fewer HTTP round trips.
//
// Callers register a [Query] with a [Batcher] and receive a [Future]. The
// batcher collects queries registered within one window and flushes them
// together. Queries that share a batch property and a path form a merge
// group. A group is sent as one request whose batch property carries the
// list of every member's value, and the combined response is split back
// into each member's share.
//
// # Usage
//
//	b := batch.New(ctx, requester, batch.WithLogger(logger))
//	defer b.Close()
//
//	var p50, p95 *batch.Future
//	b.Frame(func() {
//	    p50 = b.Register(b.NewHandle(), batch.Query{
//	        Path:          "/api/0/events-stats/",
//	        BatchProperty: "yAxis",
//	        Params:        batch.Params{"yAxis": "p50()", "statsPeriod": "14d"},
//	    })
//	    p95 = b.Register(b.NewHandle(), batch.Query{
//	        Path:          "/api/0/events-stats/",
//	        BatchProperty: "yAxis",
//	        Params:        batch.Params{"yAxis": "p95()", "statsPeriod": "14d"},
//	    })
//	})
//
//	// One request with yAxis=p50()&yAxis=p95(). Each future resolves to
//	// its own member of the response object.
//	v, err := p50.Wait(ctx)
//
// # Merging rules
//
//   - A group of one is sent with its original request.
//   - A member whose batch value is a list of more than one element is
//     never merged; it is sent on its own.
//   - A failed merged request rejects every member with the same error.
//     Other groups are not affected. Nothing is retried.
//
// # Scheduling
//
// Flushes are debounced through a [Scheduler]. [TimerScheduler] uses a
// single-shot timer; [ManualScheduler] fires only when told to.
package batch
