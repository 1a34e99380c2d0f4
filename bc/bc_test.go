package bc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoflux/mixdim/grid"
)

func lineGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.NewTensorLine(3, 1.0, [3]float64{})
	require.NoError(t, err)
	return g
}

func TestFlowBC(t *testing.T) {
	g := lineGrid(t)
	b := NewFlowBC(g)

	require.NoError(t, b.Set(0, Dirichlet, 1.5))
	require.NoError(t, b.Set(3, Neumann, -0.25))

	assert.Equal(t, Dirichlet, b.TypeOf(0))
	assert.Equal(t, 1.5, b.ValueOf(0))
	assert.Equal(t, Neumann, b.TypeOf(3))
	assert.Equal(t, -0.25, b.ValueOf(3))

	t.Run("UntaggedDefaultsNeumannZero", func(t *testing.T) {
		assert.Equal(t, Neumann, b.TypeOf(1))
		assert.Zero(t, b.ValueOf(1))
	})

	t.Run("UnknownType", func(t *testing.T) {
		err := b.Set(0, Type(7), 1)
		assert.ErrorIs(t, err, ErrUnsupportedBoundaryType)
	})

	t.Run("InteriorFace", func(t *testing.T) {
		err := b.Set(1, Dirichlet, 1)
		assert.ErrorIs(t, err, ErrUnsupportedBoundaryType)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		err := b.Set(99, Dirichlet, 1)
		assert.ErrorIs(t, err, ErrUnsupportedBoundaryType)
	})
}

func TestMechBC(t *testing.T) {
	g := lineGrid(t)
	b := NewMechBC(g)

	disp := [3]float64{1, 2, 3}
	traction := [3]float64{0, -1, 0}
	require.NoError(t, b.Set(0, Dirichlet, disp))
	require.NoError(t, b.Set(3, Neumann, traction))

	// Values stay in global coordinates, no decomposition.
	assert.Equal(t, disp, b.ValueOf(0))
	assert.Equal(t, traction, b.ValueOf(3))

	err := b.Set(0, Type(3), disp)
	assert.ErrorIs(t, err, ErrUnsupportedBoundaryType)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "Dirichlet", Dirichlet.String())
	assert.Equal(t, "Neumann", Neumann.String())
	assert.Equal(t, "Type(9)", Type(9).String())
}
