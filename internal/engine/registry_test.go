package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/into/internal/variant"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Sink", func(name string) (Operation, error) {
		return newSink(t, name, variant.AnyKind), nil
	}))
	require.NoError(t, r.Register("Double", func(name string) (Operation, error) {
		return newDoubler(t, name), nil
	}))

	assert.ErrorIs(t, r.Register("Sink", nil), ErrDuplicateType)
	assert.Equal(t, []string{"Double", "Sink"}, r.Types())

	op, err := r.Create("Sink", "out")
	require.NoError(t, err)
	assert.Equal(t, "out", op.Name())

	_, err = r.Create("Missing", "x")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.True(t, IsConfigError(err))
}
