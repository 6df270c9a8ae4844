package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bft-labs/querybatch/internal/plan"
	"github.com/bft-labs/querybatch/pkg/batch"
	"github.com/bft-labs/querybatch/pkg/log"
	"github.com/bft-labs/querybatch/pkg/transport"
)

const perfPlan = `
[[query]]
name = "p50"
path = "/api/0/organizations/acme/events-stats/"
batch_property = "yAxis"
pick = "data"
[query.params]
yAxis = "p50()"

[[query]]
name = "p95"
path = "/api/0/organizations/acme/events-stats/"
batch_property = "yAxis"
pick = "data"
[query.params]
yAxis = "p95()"

[[query]]
name = "broken"
path = "/api/0/organizations/acme/broken/"
`

// statsServer answers events-stats with one member per yAxis value and
// fails every other path.
func statsServer(t *testing.T) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		if r.URL.Path != "/api/0/organizations/acme/events-stats/" {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		out := map[string]any{}
		for _, y := range r.URL.Query()["yAxis"] {
			out[y] = map[string]any{"data": y}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(ts.Close)

	return ts, func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
}

func TestRunner_Run(t *testing.T) {
	ts, calls := statsServer(t)

	p, err := plan.Parse([]byte(perfPlan))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	requester := transport.NewHTTPRequester(ts.Client(), transport.Config{BaseURL: ts.URL}, nil)
	b := batch.New(context.Background(), requester)
	defer b.Close()

	var out bytes.Buffer
	r := NewRunner(b, &out, log.NewNoopLogger())
	sum, err := r.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Queries != 3 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 3 queries, 1 failed", sum)
	}
	if got := calls(); got != 2 {
		t.Errorf("server calls = %d, want 2 (one merged, one standalone)", got)
	}

	var results []Result
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var res Result
		if err := json.Unmarshal(sc.Bytes(), &res); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		results = append(results, res)
	}
	if len(results) != 3 {
		t.Fatalf("got %d result lines, want 3", len(results))
	}

	if results[0].Name != "p50" || string(results[0].Result) != `"p50()"` {
		t.Errorf("first line = %+v", results[0])
	}
	if results[1].Name != "p95" || string(results[1].Result) != `"p95()"` {
		t.Errorf("second line = %+v", results[1])
	}
	if results[2].Name != "broken" || results[2].Error == "" || results[2].Result != nil {
		t.Errorf("third line = %+v, want an error", results[2])
	}
}

func TestRunner_RunCancelled(t *testing.T) {
	block := make(chan struct{})
	requester := batch.RequesterFunc(func(ctx context.Context, _ batch.Request) (json.RawMessage, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return json.RawMessage(`{}`), nil
	})
	b := batch.New(context.Background(), requester)
	defer b.Close()
	defer close(block)

	p := &plan.Plan{Queries: []plan.Entry{{Name: "slow", Path: "/api/0/slow/"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if _, err := NewRunner(b, &out, log.NewNoopLogger()).Run(ctx, p); err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestEncodeValue(t *testing.T) {
	raw, err := encodeValue(json.RawMessage(`{"a":1}`))
	if err != nil || string(raw) != `{"a":1}` {
		t.Errorf("encodeValue(raw) = %s, %v", raw, err)
	}
	raw, err = encodeValue(map[string]int{"count": 3})
	if err != nil || string(raw) != `{"count":3}` {
		t.Errorf("encodeValue(map) = %s, %v", raw, err)
	}
	if _, err := encodeValue(make(chan int)); err == nil {
		t.Error("encodeValue(chan) expected error")
	}
}
