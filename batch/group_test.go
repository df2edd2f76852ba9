package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	keyFn := func(row map[string]any) any { return row["author_id"] }

	t.Run("groups keep order", func(t *testing.T) {
		t.Parallel()
		rows := []map[string]any{
			{"id": 1, "author_id": 1},
			{"id": 2, "author_id": 2},
			{"id": 3, "author_id": 1},
		}

		grouped := GroupByKey(rows, keyFn)

		require.Len(t, grouped, 2)
		require.Len(t, grouped[1], 2)
		assert.Equal(t, 1, grouped[1][0]["id"])
		assert.Equal(t, 3, grouped[1][1]["id"])
		assert.Len(t, grouped[2], 1)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, GroupByKey(nil, keyFn))
	})
}

func TestScope(t *testing.T) {
	t.Parallel()

	objects := []map[string]any{
		{"id": int64(1)},
		{"id": nil},
		{"id": int64(2)},
		{"id": 1},
		{"id": []byte("k")},
		{},
	}
	assert.Equal(t, []any{int64(1), int64(2), "k"}, Scope(objects, "id"))
	assert.Empty(t, Scope(nil, "id"))
}
