package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// Query selects events for List. Zero fields match everything.
type Query struct {
	// Since and Until bound the event time, inclusive.
	Since time.Time
	Until time.Time

	// Label keeps only events with this label.
	Label string

	// Expr is a jq expression evaluated against the JSON form of each
	// event; the event matches when the first result is truthy.
	// Example: `.score > 900 and .label != "no"`.
	Expr string

	// Limit stops the iteration after this many events. Zero means no
	// limit.
	Limit int
}

// matcher is a compiled Query.
type matcher struct {
	q    Query
	code *gojq.Code
}

func compileQuery(q Query) (*matcher, error) {
	m := &matcher{q: q}
	if q.Expr == "" {
		return m, nil
	}
	parsed, err := gojq.Parse(q.Expr)
	if err != nil {
		return nil, fmt.Errorf("eventlog: parse query %q: %w", q.Expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("eventlog: compile query %q: %w", q.Expr, err)
	}
	m.code = code
	return m, nil
}

// beyond reports whether ev sorts past every key Until can match, so that
// iteration can stop. Keys only order by millisecond, so events within the
// Until millisecond are left to match.
func (m *matcher) beyond(ev kws.Event) bool {
	return !m.q.Until.IsZero() && ev.At.UnixMilli() > m.q.Until.UnixMilli()
}

func (m *matcher) match(ev kws.Event) (bool, error) {
	if !m.q.Since.IsZero() && ev.At.Before(m.q.Since) {
		return false, nil
	}
	if !m.q.Until.IsZero() && ev.At.After(m.q.Until) {
		return false, nil
	}
	if m.q.Label != "" && ev.Label != m.q.Label {
		return false, nil
	}
	if m.code == nil {
		return true, nil
	}

	input, err := toJQ(ev)
	if err != nil {
		return false, err
	}
	it := m.code.Run(input)
	v, ok := it.Next()
	if !ok {
		return false, nil
	}
	if err, isErr := v.(error); isErr {
		return false, fmt.Errorf("eventlog: evaluate query: %w", err)
	}
	return v != nil && v != false, nil
}

// toJQ converts ev to the generic JSON value types gojq operates on.
func toJQ(ev kws.Event) (any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
