package scaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoflux/mixdim/grid"
)

func TestFromAperture_Exponents(t *testing.T) {
	aperture := []float64{0.1, 0.2}

	testCases := []struct {
		name     string
		dim      int
		ambient  int
		expected []float64
	}{
		{"matrix", 3, 3, []float64{1, 1}},
		{"fracture", 2, 3, []float64{0.1, 0.2}},
		{"intersection", 1, 3, []float64{0.1 * 0.1, 0.2 * 0.2}},
		{"point", 0, 3, []float64{0.1 * 0.1 * 0.1, 0.2 * 0.2 * 0.2}},
		{"fracture2d", 1, 2, []float64{0.1, 0.2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := FromAperture(aperture, tc.dim, tc.ambient)
			require.NoError(t, err)
			for c := range v {
				assert.InDelta(t, tc.expected[c], v[c], 1e-15)
			}
		})
	}
}

func TestFromAperture_Invalid(t *testing.T) {
	t.Run("ZeroAperture", func(t *testing.T) {
		_, err := FromAperture([]float64{0.1, 0}, 2, 3)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
	t.Run("NegativeAperture", func(t *testing.T) {
		_, err := FromAperture([]float64{-1}, 2, 3)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
	t.Run("ZeroApertureInMatrix", func(t *testing.T) {
		// Exponent zero does not excuse a bad field.
		_, err := FromAperture([]float64{0}, 3, 3)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
	t.Run("BadDimensions", func(t *testing.T) {
		_, err := FromAperture([]float64{0.1}, 3, 2)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
	t.Run("Empty", func(t *testing.T) {
		_, err := FromAperture(nil, 2, 3)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
}

// Physical volume equals native measure times specific volume, exactly.
func TestPhysicalVolumes(t *testing.T) {
	g, err := grid.NewTensorLine(3, 0.5, [3]float64{})
	require.NoError(t, err)

	aperture := []float64{0.1, 0.2, 0.3}
	v, err := FromAperture(aperture, 1, 3)
	require.NoError(t, err)

	phys, err := v.PhysicalVolumes(g)
	require.NoError(t, err)
	for c := range phys {
		assert.Equal(t, g.CellVolume(c)*v[c], phys[c], "cell %d", c)
	}

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := SpecificVolume{1}.PhysicalVolumes(g)
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
}

func TestCompose(t *testing.T) {
	// A 1-D intersection inside a 2-D fracture inside the 3-D matrix:
	// its own reduction contributes one aperture power, the fracture's
	// thickness is composed explicitly by the caller.
	own, err := FromAperture([]float64{0.01, 0.01}, 2, 3)
	require.NoError(t, err)

	composed, err := own.Compose([]float64{0.1, 0.2})
	require.NoError(t, err)
	assert.InDelta(t, 0.001, composed[0], 1e-15)
	assert.InDelta(t, 0.002, composed[1], 1e-15)

	t.Run("BadFactor", func(t *testing.T) {
		_, err := own.Compose([]float64{0.1, 0})
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := own.Compose([]float64{0.1})
		assert.ErrorIs(t, err, ErrInvalidAperture)
	})
}

func TestUniform(t *testing.T) {
	v, err := Uniform(1, 4)
	require.NoError(t, err)
	assert.Len(t, v, 4)

	_, err = Uniform(0, 4)
	assert.ErrorIs(t, err, ErrInvalidAperture)
}
