package coupling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalStiffnessCoupling_Validation(t *testing.T) {
	valid := MechParams{
		NormalStiffness: []float64{1, 1},
		Aperture:        []float64{0.1, 0.1},
	}

	t.Run("Components", func(t *testing.T) {
		for _, comps := range []int{0, -1, 4} {
			_, err := NewNormalStiffnessCoupling(valid, comps)
			assert.ErrorIs(t, err, ErrMissingOrInvalidParameter, "components %d", comps)
		}
	})
	t.Run("MissingStiffness", func(t *testing.T) {
		_, err := NewNormalStiffnessCoupling(MechParams{Aperture: []float64{0.1}}, 2)
		assert.ErrorIs(t, err, ErrMissingOrInvalidParameter)
	})
	t.Run("NegativeStiffness", func(t *testing.T) {
		_, err := NewNormalStiffnessCoupling(MechParams{
			NormalStiffness: []float64{1, -2},
			Aperture:        []float64{0.1, 0.1},
		}, 2)
		assert.ErrorIs(t, err, ErrMissingOrInvalidParameter)
	})
}

func TestStiffnessDiscretize_Componentwise(t *testing.T) {
	matrix, fracture, mg := matrixFractureInterface(t)

	nc, err := NewNormalStiffnessCoupling(MechParams{
		NormalStiffness: []float64{1, 1},
		Aperture:        []float64{0.2, 0.2},
	}, 2)
	require.NoError(t, err)

	c, err := nc.Discretize(matrix, fracture, mg)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Components)
	assert.Equal(t, 2*matrix.NumFaces, c.Size(SpacePrimary))
	assert.Equal(t, 2*fracture.NumCells, c.Size(SpaceSecondary))
	assert.Equal(t, 2*mg.NumCells, c.Size(SpaceMortar))
	assert.Equal(t, 2*mg.NumCells, nc.NumDof(mg))

	// K_n = 2*1/0.2 = 10; each coupling entry repeats per component
	// with no cross-component terms.
	for m := 0; m < mg.NumCells; m++ {
		f := mg.PrimaryFaceOf(m)
		s := mg.SecondaryCellOf(m)
		for k := 0; k < 2; k++ {
			assert.Equal(t, 1.0, c.Blocks[SpacePrimary][SpaceMortar].At(2*f+k, 2*m+k))
			assert.Equal(t, -1.0, c.Blocks[SpaceSecondary][SpaceMortar].At(2*s+k, 2*m+k))
			assert.InDelta(t, 1.0, c.Blocks[SpaceMortar][SpaceMortar].At(2*m+k, 2*m+k), 1e-15)
			assert.InDelta(t, -10.0, c.Blocks[SpaceMortar][SpacePrimary].At(2*m+k, 2*f+k), 1e-12)
			assert.InDelta(t, 10.0, c.Blocks[SpaceMortar][SpaceSecondary].At(2*m+k, 2*s+k), 1e-12)
		}
		// Off-component entries stay zero.
		assert.Zero(t, c.Blocks[SpaceMortar][SpacePrimary].At(2*m, 2*f+1))
		assert.Zero(t, c.Blocks[SpaceMortar][SpacePrimary].At(2*m+1, 2*f))
	}
}

// The traction law carries the same signs as the flow law: the mortar
// unknown balances K_n times the trace jump with identical block
// placement.
func TestStiffnessMatchesFlowSigns(t *testing.T) {
	matrix, fracture, mg := matrixFractureInterface(t)

	rc, err := NewRobinCoupling(FlowParams{
		NormalDiffusivity: []float64{2, 2},
		Aperture:          []float64{0.4, 0.4},
	})
	require.NoError(t, err)
	nc, err := NewNormalStiffnessCoupling(MechParams{
		NormalStiffness: []float64{2, 2},
		Aperture:        []float64{0.4, 0.4},
	}, 1)
	require.NoError(t, err)

	cf, err := rc.Discretize(matrix, fracture, mg)
	require.NoError(t, err)
	cm, err := nc.Discretize(matrix, fracture, mg)
	require.NoError(t, err)

	for row := SpacePrimary; row <= SpaceMortar; row++ {
		for col := SpacePrimary; col <= SpaceMortar; col++ {
			if cf.Blocks[row][col] == nil {
				assert.Nil(t, cm.Blocks[row][col])
				continue
			}
			require.NotNil(t, cm.Blocks[row][col])
			r, c := cf.Blocks[row][col].Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					assert.Equal(t, cf.Blocks[row][col].At(i, j), cm.Blocks[row][col].At(i, j))
				}
			}
		}
	}
}
