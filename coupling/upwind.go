package coupling

import (
	"fmt"

	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
)

// AdvectiveParams carries the parameters of an upwind transport
// coupling.
type AdvectiveParams struct {
	// DarcyFlux is the integrated fluid flux per mortar cell, signed
	// positive from the primary to the secondary side. Typically a
	// mortar flux block of a solved flow system. Any sign; zero means
	// no advective transfer through that mortar cell.
	DarcyFlux []float64
}

func (p AdvectiveParams) validate() error {
	if len(p.DarcyFlux) == 0 {
		return fmt.Errorf("%w: darcy flux not supplied", ErrMissingOrInvalidParameter)
	}
	return nil
}

// UpwindCoupling discretizes advective transport across an interface
// with a precomputed fluid flux:
//
//	lambda = q+ c_primary_trace + q- c_secondary
//
// where q+ and q- are the positive and negative parts of the darcy
// flux. The upstream side supplies the transported value: a positive
// flux carries the primary trace into the secondary subdomain, a
// negative flux carries the secondary cell value back.
type UpwindCoupling struct {
	params AdvectiveParams
}

// NewUpwindCoupling validates the parameters at construction. Shape
// checks against a concrete interface happen at Discretize.
func NewUpwindCoupling(params AdvectiveParams) (*UpwindCoupling, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &UpwindCoupling{params: params}, nil
}

// NumDof returns one mortar transport unknown per mortar cell.
func (uc *UpwindCoupling) NumDof(mg *mortar.MortarGrid) int { return mg.NumCells }

// Discretize builds the local contribution with the shared block
// layout: transfer rows identical to the diffusive laws, and the
// mortar row selecting the upstream value per mortar cell.
func (uc *UpwindCoupling) Discretize(primary, secondary *grid.Grid, mg *mortar.MortarGrid) (*Contribution, error) {
	if primary == nil || secondary == nil || primary.Dim-secondary.Dim != 1 {
		return nil, fmt.Errorf("%w: upwind coupling requires subdomains one dimension apart",
			mortar.ErrDimensionMismatch)
	}
	if mg.NumPrimaryFaces() != primary.NumFaces || mg.NumSecondaryCells() != secondary.NumCells {
		return nil, fmt.Errorf("%w: mortar grid built against different subdomains",
			mortar.ErrDimensionMismatch)
	}
	if len(uc.params.DarcyFlux) != mg.NumCells {
		return nil, fmt.Errorf("%w: %d darcy fluxes for %d mortar cells",
			ErrMissingOrInvalidParameter, len(uc.params.DarcyFlux), mg.NumCells)
	}

	// Split the flux into its upstream parts: the primary trace is
	// weighted where the flux leaves the primary side, the secondary
	// value where it returns.
	fromPrimary := make([]float64, mg.NumCells)
	fromSecondary := make([]float64, mg.NumCells)
	for m, q := range uc.params.DarcyFlux {
		if q > 0 {
			fromPrimary[m] = q
		} else {
			fromSecondary[m] = q
		}
	}

	c := newContribution(primary.NumFaces, secondary.NumCells, mg.NumCells, 1)

	c.addScaledCSR(SpacePrimary, SpaceMortar, mg.MortarToPrimaryInt(), nil, 1)
	c.addScaledCSR(SpaceSecondary, SpaceMortar, mg.MortarToSecondaryInt(), nil, -1)

	// lambda - q+ trace - q- c_secondary = 0
	c.addIdentity(SpaceMortar, 1)
	c.addScaledCSR(SpaceMortar, SpacePrimary, mg.PrimaryToMortarAvg(), fromPrimary, -1)
	c.addScaledCSR(SpaceMortar, SpaceSecondary, mg.SecondaryToMortarAvg(), fromSecondary, -1)

	return c, nil
}
