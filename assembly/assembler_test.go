package assembly

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoflux/mixdim/bc"
	"github.com/geoflux/mixdim/coupling"
	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
)

// singleFracture builds a unit matrix cell over a one-cell fracture:
// unit pressure on the matrix top, zero pressure at both fracture
// tips, coupled through the matrix bottom face.
func singleFracture(t *testing.T, kappa float64) (*Assembler, *Subdomain, *Subdomain, *Interface) {
	t.Helper()

	mg2, err := grid.NewCartesian2D(1, 1, 1.0, 1.0, [3]float64{})
	require.NoError(t, err)
	top := grid.YFaceIndex(1, 1, 0, 1)
	bottom := grid.YFaceIndex(1, 1, 0, 0)
	mbc := bc.NewFlowBC(mg2)
	require.NoError(t, mbc.Set(top, bc.Dirichlet, 1.0))

	fg, err := grid.NewTensorLine(1, 1.0, [3]float64{})
	require.NoError(t, err)
	fbc := bc.NewFlowBC(fg)
	require.NoError(t, fbc.Set(0, bc.Dirichlet, 0))
	require.NoError(t, fbc.Set(1, bc.Dirichlet, 0))

	matrix, err := NewSubdomain("matrix", mg2, []float64{1}, mbc)
	require.NoError(t, err)
	fracture, err := NewSubdomain("fracture", fg, []float64{1}, fbc)
	require.NoError(t, err)

	ifg, err := mortar.NewMortarGrid(mg2, fg, []mortar.CellMap{{Face: bottom, Cell: 0}})
	require.NoError(t, err)
	law, err := coupling.NewRobinCoupling(coupling.FlowParams{
		NormalDiffusivity: []float64{kappa},
		Aperture:          []float64{1.0},
	})
	require.NoError(t, err)
	ifc, err := NewInterface("matrix-fracture", matrix, fracture, ifg, law)
	require.NoError(t, err)

	asm, err := NewAssembler([]*Subdomain{matrix, fracture}, []*Interface{ifc})
	require.NoError(t, err)
	return asm, matrix, fracture, ifc
}

// With kappa = 1/2 and unit aperture the effective normal diffusivity
// is one, and the three-unknown system solves in closed form:
// lambda = 4/9, matrix pressure 7/9, fracture pressure 1/9.
func TestAssembleAndSolve_SingleFracture(t *testing.T) {
	asm, matrix, _, ifc := singleFracture(t, 0.5)

	bs, err := asm.Assemble(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, bs.TotalSize())

	x, err := bs.Solve()
	require.NoError(t, err)

	pm, err := bs.BlockOf(x, "matrix")
	require.NoError(t, err)
	pf, err := bs.BlockOf(x, "fracture")
	require.NoError(t, err)
	lambda, err := bs.BlockOf(x, "matrix-fracture")
	require.NoError(t, err)

	assert.InDelta(t, 7.0/9.0, pm[0], 1e-12)
	assert.InDelta(t, 1.0/9.0, pf[0], 1e-12)
	assert.InDelta(t, 4.0/9.0, lambda[0], 1e-12)

	// Conservation through the whole family: inflow through the
	// matrix top equals the mortar flux equals the fracture tip
	// outflow.
	topInflow := 2 * (1 - pm[0])
	tipOutflow := 4 * pf[0]
	assert.InDelta(t, lambda[0], topInflow, 1e-12)
	assert.InDelta(t, lambda[0], tipOutflow, 1e-12)

	// Flux reconstruction sees the mortar flux as an outward flux on
	// the interface face. The bottom face normal points +y with the
	// cell above it, so the signed flux is -lambda.
	ext, err := ifc.PrimaryFaceFlux(lambda)
	require.NoError(t, err)
	q, err := matrix.FaceFlux(pm, ext)
	require.NoError(t, err)
	bottom := grid.YFaceIndex(1, 1, 0, 0)
	assert.InDelta(t, -lambda[0], q[bottom], 1e-12)
}

// A very large normal diffusivity enforces continuity between the
// matrix trace and the fracture pressure.
func TestAssemble_ContinuityLimit(t *testing.T) {
	asm, _, _, _ := singleFracture(t, 1e8)

	bs, err := asm.Assemble(context.Background())
	require.NoError(t, err)
	x, err := bs.Solve()
	require.NoError(t, err)

	pm, _ := bs.BlockOf(x, "matrix")
	pf, _ := bs.BlockOf(x, "fracture")
	lambda, _ := bs.BlockOf(x, "matrix-fracture")

	trace := pm[0] - lambda[0]/2
	assert.InDelta(t, pf[0], trace, 1e-6)
}

// A vanishing normal diffusivity insulates the fracture: no transfer,
// matrix equilibrates with its own boundary, fracture with its tips.
func TestAssemble_InsulatingLimit(t *testing.T) {
	asm, _, _, _ := singleFracture(t, 1e-12)

	bs, err := asm.Assemble(context.Background())
	require.NoError(t, err)
	x, err := bs.Solve()
	require.NoError(t, err)

	pm, _ := bs.BlockOf(x, "matrix")
	pf, _ := bs.BlockOf(x, "fracture")
	lambda, _ := bs.BlockOf(x, "matrix-fracture")

	assert.Less(t, math.Abs(lambda[0]), 1e-11)
	assert.InDelta(t, 1.0, pm[0], 1e-11)
	assert.InDelta(t, 0.0, pf[0], 1e-11)
}

func TestAssemble_FailurePropagation(t *testing.T) {
	_, matrix, fracture, good := singleFracture(t, 0.5)

	// A law whose parameter count disagrees with the mortar grid
	// fails at Discretize time.
	bad, err := coupling.NewRobinCoupling(coupling.FlowParams{
		NormalDiffusivity: []float64{1, 1},
		Aperture:          []float64{1.0},
	})
	require.NoError(t, err)
	badIfc := &Interface{
		ID:        "broken",
		Primary:   good.Primary,
		Secondary: good.Secondary,
		Mortar:    good.Mortar,
		Law:       bad,
	}

	asm, err := NewAssembler([]*Subdomain{matrix, fracture}, []*Interface{good, badIfc})
	require.NoError(t, err)

	bs, err := asm.Assemble(context.Background())
	assert.ErrorIs(t, err, coupling.ErrMissingOrInvalidParameter)
	assert.Nil(t, bs)
}

func TestAssemble_RejectsVectorLaw(t *testing.T) {
	_, matrix, fracture, flowIfc := singleFracture(t, 0.5)

	mech, err := coupling.NewNormalStiffnessCoupling(coupling.MechParams{
		NormalStiffness: []float64{1},
		Aperture:        []float64{1.0},
	}, 2)
	require.NoError(t, err)
	ifc, err := NewInterface("mech", flowIfc.Primary, flowIfc.Secondary, flowIfc.Mortar, mech)
	require.NoError(t, err)

	asm, err := NewAssembler([]*Subdomain{matrix, fracture}, []*Interface{ifc})
	require.NoError(t, err)

	_, err = asm.Assemble(context.Background())
	assert.ErrorIs(t, err, coupling.ErrMissingOrInvalidParameter)
}

func TestAssemble_CanceledContext(t *testing.T) {
	asm, _, _, _ := singleFracture(t, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bs, err := asm.Assemble(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, bs)
}

func TestNewAssembler_Validation(t *testing.T) {
	_, matrix, fracture, ifc := singleFracture(t, 0.5)

	t.Run("NoSubdomains", func(t *testing.T) {
		_, err := NewAssembler(nil, nil)
		assert.ErrorIs(t, err, ErrBlockLayout)
	})
	t.Run("DuplicateSubdomainID", func(t *testing.T) {
		_, err := NewAssembler([]*Subdomain{matrix, matrix}, nil)
		assert.ErrorIs(t, err, ErrBlockLayout)
	})
	t.Run("InterfaceIDCollision", func(t *testing.T) {
		clash := *ifc
		clash.ID = "matrix"
		_, err := NewAssembler([]*Subdomain{matrix, fracture}, []*Interface{&clash})
		assert.ErrorIs(t, err, ErrBlockLayout)
	})
	t.Run("ForeignSubdomain", func(t *testing.T) {
		_, err := NewAssembler([]*Subdomain{matrix}, []*Interface{ifc})
		assert.ErrorIs(t, err, ErrBlockLayout)
	})
}

func TestNewInterface_Validation(t *testing.T) {
	_, matrix, fracture, ifc := singleFracture(t, 0.5)

	t.Run("MissingPieces", func(t *testing.T) {
		_, err := NewInterface("x", nil, fracture, ifc.Mortar, ifc.Law)
		assert.ErrorIs(t, err, mortar.ErrDimensionMismatch)
	})
	t.Run("EmptyID", func(t *testing.T) {
		_, err := NewInterface("", matrix, fracture, ifc.Mortar, ifc.Law)
		assert.ErrorIs(t, err, ErrBlockLayout)
	})
	t.Run("SameDimension", func(t *testing.T) {
		_, err := NewInterface("x", matrix, matrix, ifc.Mortar, ifc.Law)
		assert.ErrorIs(t, err, mortar.ErrDimensionMismatch)
	})
}
