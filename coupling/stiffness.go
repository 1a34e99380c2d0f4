package coupling

import (
	"fmt"

	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
	"github.com/geoflux/mixdim/scaling"
)

// MechParams carries the parameters of a normal-stiffness coupling,
// the mechanics analog of FlowParams.
type MechParams struct {
	// NormalStiffness per mortar cell, strictly positive. Like
	// permeability it is absolute; the aperture enters only through
	// the effective normal distance.
	NormalStiffness []float64
	// Aperture per secondary cell, strictly positive.
	Aperture []float64
	// SpecificVolume optionally scales the per-mortar-cell transfer
	// measure. Defaults to ones.
	SpecificVolume scaling.SpecificVolume
}

func (p MechParams) validate() error {
	if len(p.NormalStiffness) == 0 {
		return fmt.Errorf("%w: normal stiffness not supplied", ErrMissingOrInvalidParameter)
	}
	for m, k := range p.NormalStiffness {
		if k <= 0 {
			return fmt.Errorf("%w: normal stiffness %g in mortar cell %d",
				ErrMissingOrInvalidParameter, k, m)
		}
	}
	if len(p.Aperture) == 0 {
		return fmt.Errorf("%w: empty aperture field", scaling.ErrInvalidAperture)
	}
	for c, a := range p.Aperture {
		if a <= 0 {
			return fmt.Errorf("%w: aperture %g in cell %d", scaling.ErrInvalidAperture, a, c)
		}
	}
	for m, v := range p.SpecificVolume {
		if v <= 0 {
			return fmt.Errorf("%w: specific volume %g in mortar cell %d",
				scaling.ErrInvalidAperture, v, m)
		}
	}
	return nil
}

// NormalStiffnessCoupling discretizes the mechanics interface law
//
//	lambda = -K_n (u_secondary - u_primary_trace)
//
// componentwise in global Cartesian coordinates, with effective
// stiffness K_n = kappa / (a/2). The mortar traction lambda is a
// vector per mortar cell and keeps the flow convention: positive
// components denote transmission from the primary to the secondary
// side. Values are never decomposed into normal/tangential parts here.
type NormalStiffnessCoupling struct {
	params     MechParams
	components int
}

// NewNormalStiffnessCoupling validates the parameters at construction.
// components is the vector length of the displacement field, normally
// the ambient dimension.
func NewNormalStiffnessCoupling(params MechParams, components int) (*NormalStiffnessCoupling, error) {
	if components < 1 || components > 3 {
		return nil, fmt.Errorf("%w: %d vector components", ErrMissingOrInvalidParameter, components)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &NormalStiffnessCoupling{params: params, components: components}, nil
}

// NumDof returns one traction vector per mortar cell.
func (nc *NormalStiffnessCoupling) NumDof(mg *mortar.MortarGrid) int {
	return mg.NumCells * nc.components
}

// EffectiveStiffness returns K_n = 2 kappa / a per mortar cell.
func (nc *NormalStiffnessCoupling) EffectiveStiffness(mg *mortar.MortarGrid) ([]float64, error) {
	if len(nc.params.NormalStiffness) != mg.NumCells {
		return nil, fmt.Errorf("%w: %d stiffness values for %d mortar cells",
			ErrMissingOrInvalidParameter, len(nc.params.NormalStiffness), mg.NumCells)
	}
	if len(nc.params.Aperture) != mg.NumSecondaryCells() {
		return nil, fmt.Errorf("%w: %d apertures for %d secondary cells",
			scaling.ErrInvalidAperture, len(nc.params.Aperture), mg.NumSecondaryCells())
	}
	k := make([]float64, mg.NumCells)
	for m := range k {
		a := nc.params.Aperture[mg.SecondaryCellOf(m)]
		k[m] = 2 * nc.params.NormalStiffness[m] / a
	}
	return k, nil
}

// Discretize builds the vector-valued contribution with the same block
// layout and signs as the flow law, expanded over the displacement
// components.
func (nc *NormalStiffnessCoupling) Discretize(primary, secondary *grid.Grid, mg *mortar.MortarGrid) (*Contribution, error) {
	if primary == nil || secondary == nil || primary.Dim-secondary.Dim != 1 {
		return nil, fmt.Errorf("%w: stiffness coupling requires subdomains one dimension apart",
			mortar.ErrDimensionMismatch)
	}
	if mg.NumPrimaryFaces() != primary.NumFaces || mg.NumSecondaryCells() != secondary.NumCells {
		return nil, fmt.Errorf("%w: mortar grid built against different subdomains",
			mortar.ErrDimensionMismatch)
	}
	k, err := nc.EffectiveStiffness(mg)
	if err != nil {
		return nil, err
	}
	if sv := nc.params.SpecificVolume; sv != nil && len(sv) != mg.NumCells {
		return nil, fmt.Errorf("%w: %d specific volumes for %d mortar cells",
			scaling.ErrInvalidAperture, len(sv), mg.NumCells)
	}

	weight := make([]float64, mg.NumCells)
	for m := range weight {
		weight[m] = k[m] * mg.CellVolume(m)
		if nc.params.SpecificVolume != nil {
			weight[m] *= nc.params.SpecificVolume[m]
		}
	}

	c := newContribution(primary.NumFaces, secondary.NumCells, mg.NumCells, nc.components)

	c.addScaledCSR(SpacePrimary, SpaceMortar, mg.MortarToPrimaryInt(), nil, 1)
	c.addScaledCSR(SpaceSecondary, SpaceMortar, mg.MortarToSecondaryInt(), nil, -1)

	c.addIdentity(SpaceMortar, 1)
	c.addScaledCSR(SpaceMortar, SpacePrimary, mg.PrimaryToMortarAvg(), weight, -1)
	c.addScaledCSR(SpaceMortar, SpaceSecondary, mg.SecondaryToMortarAvg(), weight, 1)

	return c, nil
}
