package hub

import (
	"net/url"
	"strings"
)

// Query is an insertion-ordered set of URL query parameters. Encode keeps
// the order in which keys were first set; some hub deployments log and sign
// requests with the raw query string.
type Query struct {
	keys   []string
	values map[string]string
}

// NewQuery creates a query from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewQuery(pairs ...string) *Query {
	q := &Query{values: make(map[string]string)}

	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}

	return q
}

// Set assigns value to key. An existing key keeps its position.
func (q *Query) Set(key, value string) *Query {
	if q.values == nil {
		q.values = make(map[string]string)
	}

	if _, ok := q.values[key]; !ok {
		q.keys = append(q.keys, key)
	}

	q.values[key] = value

	return q
}

// Get returns the value of key and whether it is present.
func (q *Query) Get(key string) (string, bool) {
	if q == nil {
		return "", false
	}

	value, ok := q.values[key]

	return value, ok
}

// Del removes key.
func (q *Query) Del(key string) {
	if q == nil {
		return
	}

	if _, ok := q.values[key]; !ok {
		return
	}

	delete(q.values, key)

	for i, k := range q.keys {
		if k == key {
			q.keys = append(q.keys[:i], q.keys[i+1:]...)

			break
		}
	}
}

// Keys returns the keys in insertion order.
func (q *Query) Keys() []string {
	if q == nil {
		return nil
	}

	return append([]string(nil), q.keys...)
}

// Len returns the number of parameters.
func (q *Query) Len() int {
	if q == nil {
		return 0
	}

	return len(q.keys)
}

// Clone returns an independent copy.
func (q *Query) Clone() *Query {
	clone := NewQuery()
	if q == nil {
		return clone
	}

	for _, key := range q.keys {
		clone.Set(key, q.values[key])
	}

	return clone
}

// Encode percent-encodes every value and joins the pairs with "&" in
// insertion order.
func (q *Query) Encode() string {
	if q.Len() == 0 {
		return ""
	}

	var sb strings.Builder

	for i, key := range q.keys {
		if i > 0 {
			sb.WriteByte('&')
		}

		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(q.values[key]))
	}

	return sb.String()
}
