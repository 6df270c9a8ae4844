// Package querybatch merges API queries that differ only in one list
// parameter into a single HTTP request.
//
// Example usage:
//
//	b := querybatch.New(ctx, querybatch.Config{
//	    BaseURL:   "https://sentry.example.com",
//	    AuthToken: token,
//	})
//	defer b.Close()
//
//	v, err := b.Do(ctx, querybatch.Query{
//	    Path:          "/api/0/organizations/acme/events-stats/",
//	    BatchProperty: "yAxis",
//	    Params:        querybatch.Params{"yAxis": "p95()", "statsPeriod": "24h"},
//	})
//
// See package pkg/batch for the merging rules and pkg/transport for the
// HTTP requester.
package querybatch

import (
	"context"
	"net/http"
	"time"

	"github.com/bft-labs/querybatch/pkg/batch"
	"github.com/bft-labs/querybatch/pkg/log"
	"github.com/bft-labs/querybatch/pkg/transport"
)

// Query describes one API request. See batch.Query.
type Query = batch.Query

// Params holds request parameters. See batch.Params.
type Params = batch.Params

// Batcher collects and merges queries. See batch.Batcher.
type Batcher = batch.Batcher

// DefaultTimeout is the HTTP timeout used when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Config holds the settings of a Batcher talking HTTP.
type Config struct {
	BaseURL   string
	AuthToken string

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Window delays flushing to collect more queries. Zero flushes on the
	// next scheduler tick.
	Window time.Duration

	Logger log.Logger
}

// New creates a Batcher that sends its requests with an HTTP GET requester.
// Additional options are applied after the ones derived from cfg.
func New(ctx context.Context, cfg Config, opts ...batch.Option) *Batcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	requester := transport.NewHTTPRequester(
		&http.Client{Timeout: cfg.Timeout},
		transport.Config{BaseURL: cfg.BaseURL, AuthToken: cfg.AuthToken},
		cfg.Logger,
	)

	base := []batch.Option{batch.WithWindow(cfg.Window)}
	if cfg.Logger != nil {
		base = append(base, batch.WithLogger(cfg.Logger))
	}
	return batch.New(ctx, requester, append(base, opts...)...)
}
