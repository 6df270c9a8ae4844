package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/bft-labs/querybatch/pkg/batch"
	"github.com/bft-labs/querybatch/pkg/log"
)

// maxErrorBody bounds how much of a failed response ends up in a StatusError.
const maxErrorBody = 4 << 10

// Config holds the connection settings of an HTTPRequester.
type Config struct {
	// BaseURL is prefixed to every request path. A trailing slash is ignored.
	BaseURL string

	// AuthToken is sent as a bearer token when set.
	AuthToken string

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// HTTPRequester implements batch.Requester over HTTP GET.
type HTTPRequester struct {
	client HTTPClient
	config Config
	logger log.Logger
}

// NewHTTPRequester creates a requester. A nil logger discards output.
func NewHTTPRequester(client HTTPClient, cfg Config, logger log.Logger) *HTTPRequester {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "querybatch (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &HTTPRequester{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Do sends req and returns the JSON response body.
func (r *HTTPRequester) Do(ctx context.Context, req batch.Request) (json.RawMessage, error) {
	u := r.config.BaseURL + req.Path
	if q := EncodeParams(req.Params); q != "" {
		u += "?" + q
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", r.config.UserAgent)
	httpReq.Header.Set("X-Request-Id", requestID)
	if r.config.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.config.AuthToken)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	r.logger.Debug("api request",
		log.String("path", req.Path),
		log.String("request_id", requestID),
		log.Int("status", resp.StatusCode),
		log.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w (%s)", ErrInvalidJSON, req.Path)
	}
	return json.RawMessage(body), nil
}

// EncodeParams renders params as a sorted query string. Slices become
// repeated parameters; nil values are skipped.
func EncodeParams(params batch.Params) string {
	values := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				values.Add(k, fmt.Sprint(rv.Index(i).Interface()))
			}
		default:
			values.Add(k, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

var _ batch.Requester = (*HTTPRequester)(nil)
