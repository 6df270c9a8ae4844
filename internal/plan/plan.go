// Package plan loads query plan files: TOML lists of API queries that the
// CLI runs through a batcher.
//
//	[[query]]
//	name = "p50"
//	path = "/api/0/organizations/acme/events-stats/"
//	batch_property = "yAxis"
//	pick = "data"
//
//	[query.params]
//	yAxis = "p50()"
//	statsPeriod = "14d"
package plan

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/querybatch/pkg/batch"
)

// ErrEmptyPlan is returned for a plan without queries.
var ErrEmptyPlan = errors.New("plan has no queries")

// Plan is a parsed plan file.
type Plan struct {
	Queries []Entry `toml:"query"`
}

// Entry is one query of a plan.
type Entry struct {
	Name          string            `toml:"name"`
	Path          string            `toml:"path"`
	BatchProperty string            `toml:"batch_property"`
	Params        map[string]any    `toml:"params"`
	Headers       map[string]string `toml:"headers"`
	Pick          string            `toml:"pick"`
}

// Load reads and parses the plan at path.
func Load(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a plan. Unnamed queries are named after
// their position.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if len(p.Queries) == 0 {
		return nil, ErrEmptyPlan
	}

	seen := make(map[string]bool, len(p.Queries))
	for i := range p.Queries {
		e := &p.Queries[i]
		if e.Name == "" {
			e.Name = fmt.Sprintf("query-%d", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("query %q: duplicate name", e.Name)
		}
		seen[e.Name] = true

		if e.Path == "" {
			return nil, fmt.Errorf("query %q: path is required", e.Name)
		}
		if e.BatchProperty != "" {
			if _, ok := e.Params[e.BatchProperty]; !ok {
				return nil, fmt.Errorf("query %q: params has no %q value", e.Name, e.BatchProperty)
			}
		}
	}
	return &p, nil
}

// Query converts e into a batch query.
func (e Entry) Query() batch.Query {
	q := batch.Query{
		Path:          e.Path,
		BatchProperty: e.BatchProperty,
		Params:        batch.Params(e.Params),
		Select:        e.Pick,
	}
	if len(e.Headers) > 0 {
		q.Header = make(http.Header, len(e.Headers))
		for k, v := range e.Headers {
			q.Header.Set(k, v)
		}
	}
	return q
}
