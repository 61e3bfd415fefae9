package hub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

func TestQuery_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    *hub.Query
		expected string
	}{
		{
			name:     "nil query",
			query:    nil,
			expected: "",
		},
		{
			name:     "empty query",
			query:    hub.NewQuery(),
			expected: "",
		},
		{
			name:     "keeps insertion order",
			query:    hub.NewQuery("zeta", "1", "alpha", "2", "mid", "3"),
			expected: "zeta=1&alpha=2&mid=3",
		},
		{
			name:     "escapes values",
			query:    hub.NewQuery("criteria", `{"title":"a b&c"}`),
			expected: "criteria=%7B%22title%22%3A%22a+b%26c%22%7D",
		},
		{
			name:     "empty value",
			query:    hub.NewQuery("q", ""),
			expected: "q=",
		},
		{
			name:     "dangling key ignored",
			query:    hub.NewQuery("a", "1", "b"),
			expected: "a=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.query.Encode())
		})
	}
}

func TestQuery_Mutation(t *testing.T) {
	t.Parallel()

	t.Run("set keeps position of existing key", func(t *testing.T) {
		t.Parallel()

		q := hub.NewQuery("a", "1", "b", "2")
		q.Set("a", "3").Set("c", "4")

		assert.Equal(t, "a=3&b=2&c=4", q.Encode())
		assert.Equal(t, []string{"a", "b", "c"}, q.Keys())
		assert.Equal(t, 3, q.Len())
	})

	t.Run("get and del", func(t *testing.T) {
		t.Parallel()

		q := hub.NewQuery("a", "1", "b", "2")

		value, ok := q.Get("b")
		assert.True(t, ok)
		assert.Equal(t, "2", value)

		q.Del("a")
		q.Del("missing")

		_, ok = q.Get("a")
		assert.False(t, ok)
		assert.Equal(t, "b=2", q.Encode())
	})

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()

		var q hub.Query
		q.Set("x", "1")

		assert.Equal(t, "x=1", q.Encode())
	})

	t.Run("clone is independent", func(t *testing.T) {
		t.Parallel()

		original := hub.NewQuery("a", "1")
		clone := original.Clone()
		clone.Set("b", "2")
		clone.Set("a", "changed")

		assert.Equal(t, "a=1", original.Encode())
		assert.Equal(t, "a=changed&b=2", clone.Encode())
	})

	t.Run("nil query reads as empty", func(t *testing.T) {
		t.Parallel()

		var q *hub.Query

		_, ok := q.Get("a")
		assert.False(t, ok)
		assert.Nil(t, q.Keys())
		assert.Equal(t, 0, q.Len())
		assert.Equal(t, 0, q.Clone().Len())
		q.Del("a")
	})
}
