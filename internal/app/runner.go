package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/querybatch/internal/plan"
	"github.com/bft-labs/querybatch/pkg/batch"
	"github.com/bft-labs/querybatch/pkg/log"
)

// Result is one output line of a run.
type Result struct {
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Summary describes a finished run.
type Summary struct {
	Queries  int
	Failed   int
	Duration time.Duration
}

// Runner executes plans through a batcher and writes JSON lines to out.
type Runner struct {
	batcher *batch.Batcher
	logger  log.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// NewRunner creates a runner.
func NewRunner(b *batch.Batcher, out io.Writer, logger log.Logger) *Runner {
	return &Runner{
		batcher: b,
		logger:  logger,
		enc:     json.NewEncoder(out),
	}
}

// Run registers every query of p in one frame, waits for all of them and
// writes one result line per query, in plan order. Query failures are
// reported in the output; Run itself fails only on cancellation or when
// output cannot be written.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (Summary, error) {
	start := time.Now()

	futures := make([]*batch.Future, len(p.Queries))
	r.batcher.Frame(func() {
		for i, e := range p.Queries {
			futures[i] = r.batcher.Register(r.batcher.NewHandle(), e.Query())
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{Queries: len(p.Queries)}
	for i, f := range futures {
		name := p.Queries[i].Name
		v, err := f.Wait(ctx)
		if err != nil && ctx.Err() != nil {
			return sum, ctx.Err()
		}

		res := Result{Name: name}
		if err == nil {
			res.Result, err = encodeValue(v)
		}
		if err != nil {
			sum.Failed++
			res.Error = err.Error()
			r.logger.Warn("query failed", log.String("query", name), log.Err(err))
		}
		if err := r.enc.Encode(res); err != nil {
			return sum, fmt.Errorf("write result: %w", err)
		}
	}

	sum.Duration = time.Since(start)
	r.logger.Info("plan finished",
		log.Int("queries", sum.Queries),
		log.Int("failed", sum.Failed),
		log.Duration("duration", sum.Duration),
	)
	return sum, nil
}

func encodeValue(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}
