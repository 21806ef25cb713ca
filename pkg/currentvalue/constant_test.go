package currentvalue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
)

func TestConstant(t *testing.T) {
	t.Parallel()

	t.Run("yields value then completes", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		sub := currentvalue.Constant(42)

		v, ok, err := sub.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 42, v)

		_, ok, err = sub.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = sub.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ranges over a single value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{"only"}, collect(t, currentvalue.Constant("only")))
	})

	t.Run("current reports the constant", func(t *testing.T) {
		t.Parallel()

		sub := currentvalue.Constant(3.14)
		v, err := sub.Current(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 3.14, v, 0)
	})
}
