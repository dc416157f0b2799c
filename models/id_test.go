package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialIDGeneratorNew(t *testing.T) {
	t.Run("returns a new id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			id := idGen.New()
			require.Equal(t, uint32(i), id)
		}
	})

	t.Run("returns a reused id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			idGen.New()
		}

		idGen.Reuse(2)
		id := idGen.New()
		require.Equal(t, uint32(2), id)
	})

	t.Run("reused ids are returned most recent first", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 3; i++ {
			idGen.New()
		}

		idGen.Reuse(1)
		idGen.Reuse(3)
		require.Equal(t, uint32(3), idGen.New())
		require.Equal(t, uint32(1), idGen.New())
		require.Equal(t, uint32(4), idGen.New())
	})
}
