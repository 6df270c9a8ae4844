package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
)

// Params is the query-string part of a request. Values are scalars or
// slices; a slice is sent as a repeated parameter.
//
// Batch values are compared by their text form, the same form they take on
// the wire. Within one merge group 1 and "1" share a slot: one value is sent
// and both callers receive the share keyed "1".
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TransformFunc turns a response body into the value a caller receives.
// For a merged request the body is the combined response.
type TransformFunc func(body json.RawMessage, q *Query) (any, error)

// Query describes one API request a caller wants answered.
type Query struct {
	// Path is the API path, relative to the requester's base URL.
	Path string

	// BatchProperty names the parameter whose values are merged into a
	// list. Queries without one are always sent on their own.
	BatchProperty string

	// Params holds the request parameters, including BatchProperty.
	Params Params

	// Header carries extra request headers. Merged requests use the
	// first member's headers.
	Header http.Header

	// Transform, when set, builds the caller's value from the response.
	Transform TransformFunc

	// Select is a gjson path applied to the caller's share of the
	// response. It is ignored when Transform is set.
	Select string
}

// MergeKey identifies the merge group of q.
func (q *Query) MergeKey() string {
	return q.BatchProperty + "." + q.Path
}

func (q *Query) validate() error {
	if q.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidQuery)
	}
	return nil
}

// request returns the request q would issue on its own.
func (q *Query) request() Request {
	return Request{
		Path:   q.Path,
		Params: q.Params.Clone(),
		Header: q.Header.Clone(),
	}
}

// batchValue returns the scalar value q contributes to a merged request.
// A one-element list counts as its element. Missing values, empty lists
// and lists with several elements are not mergeable.
func (q *Query) batchValue() (any, bool) {
	v, ok := q.Params[q.BatchProperty]
	if !ok || v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() != 1 {
			return nil, false
		}
		return rv.Index(0).Interface(), true
	default:
		return v, true
	}
}

// Request is what a Requester sends over the wire.
type Request struct {
	Path   string
	Params Params
	Header http.Header
}

// Requester executes a single request and returns the JSON response body.
type Requester interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req Request) (json.RawMessage, error)

// Do calls f(ctx, req).
func (f RequesterFunc) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// Handle is an opaque per-caller token. Registering twice with the same
// handle before a flush replaces the earlier query.
type Handle struct {
	id uint64
}

// IsZero reports whether h was never issued by a Batcher.
func (h Handle) IsZero() bool {
	return h.id == 0
}
