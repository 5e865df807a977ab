package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassemble_SortsByEmbeddedIndex(t *testing.T) {
	t.Parallel()

	groups := [][]record{
		{{index: 4}, {index: 5}},
		{{index: 0}, {index: 1}},
		{{index: 2}, {index: 3}},
	}

	merged, err := Reassemble(groups, func(r record) (int, bool) {
		return r.index, true
	})
	require.NoError(t, err)
	require.Len(t, merged, 6)

	for i, rec := range merged {
		assert.Equal(t, i, rec.index)
	}
}

func TestReassemble_StableForEqualIndexes(t *testing.T) {
	t.Parallel()

	groups := [][]record{
		{{index: 1, caption: "first"}, {index: 1, caption: "second"}},
		{{index: 0, caption: "zero"}, {index: 1, caption: "third"}},
	}

	merged, err := Reassemble(groups, func(r record) (int, bool) {
		return r.index, true
	})
	require.NoError(t, err)

	assert.Equal(t, "zero", merged[0].caption)
	// Ties keep input order.
	assert.Equal(t, "first", merged[1].caption)
	assert.Equal(t, "second", merged[2].caption)
	assert.Equal(t, "third", merged[3].caption)
}

func TestReassemble_MissingIndexFailsLoudly(t *testing.T) {
	t.Parallel()

	groups := [][]record{
		{{index: 0}},
		{{index: -1}},
	}

	_, err := Reassemble(groups, func(r record) (int, bool) {
		if r.index < 0 {
			return 0, false
		}
		return r.index, true
	})
	assert.ErrorIs(t, err, ErrMissingIndex)
}

func TestReassemble_Empty(t *testing.T) {
	t.Parallel()

	merged, err := Reassemble(nil, func(r record) (int, bool) { return r.index, true })
	require.NoError(t, err)
	assert.Empty(t, merged)
}
