package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder(t *testing.T) {
	t.Parallel()

	embedder := NewHashEmbedder()

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a, err := embedder.Embed(context.Background(), "a whiteboard covered in diagrams")
		require.NoError(t, err)
		b, err := embedder.Embed(context.Background(), "a whiteboard covered in diagrams")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, hashDimensions)
	})

	t.Run("different texts differ", func(t *testing.T) {
		t.Parallel()

		a, err := embedder.Embed(context.Background(), "one")
		require.NoError(t, err)
		b, err := embedder.Embed(context.Background(), "two")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("values bounded", func(t *testing.T) {
		t.Parallel()

		vec, err := embedder.Embed(context.Background(), "bounds check")
		require.NoError(t, err)

		for i, v := range vec {
			assert.GreaterOrEqual(t, v, float32(-1), "dim %d", i)
			assert.LessOrEqual(t, v, float32(1), "dim %d", i)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()

		_, err := embedder.Embed(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}
