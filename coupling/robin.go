package coupling

import (
	"fmt"

	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
	"github.com/geoflux/mixdim/scaling"
)

// FlowParams carries the parameters of a Robin flow coupling. All
// fields except SpecificVolume are required.
type FlowParams struct {
	// NormalDiffusivity is the normal permeability per mortar cell,
	// in absolute (unscaled) form. Strictly positive.
	NormalDiffusivity []float64
	// Aperture is the thickness of the secondary subdomain per
	// secondary cell. Strictly positive; the effective normal
	// distance of the coupling is half the local aperture.
	Aperture []float64
	// SpecificVolume optionally scales each mortar cell's transfer
	// measure with a factor inherited from the primary side (unity
	// for a matrix-fracture interface). Defaults to ones.
	SpecificVolume scaling.SpecificVolume
}

func (p FlowParams) validate() error {
	if len(p.NormalDiffusivity) == 0 {
		return fmt.Errorf("%w: normal diffusivity not supplied", ErrMissingOrInvalidParameter)
	}
	for m, k := range p.NormalDiffusivity {
		if k <= 0 {
			return fmt.Errorf("%w: normal diffusivity %g in mortar cell %d",
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

// RobinCoupling discretizes the flow interface law
//
//	lambda = -k_n (p_secondary - p_primary_trace)
//
// with effective normal diffusivity k_n = kappa_n / (a/2): the normal
// pressure gradient is resolved over half the local aperture. The
// mortar-row equation is scaled by k_n so the degenerate limits behave:
// kappa_n -> 0 decouples lambda entirely (insulating interface) and
// large kappa_n enforces trace continuity.
type RobinCoupling struct {
	params FlowParams
}

// NewRobinCoupling validates the parameters at construction. Shape
// checks against a concrete interface happen at Discretize.
func NewRobinCoupling(params FlowParams) (*RobinCoupling, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &RobinCoupling{params: params}, nil
}

// NumDof returns one mortar flux unknown per mortar cell.
func (rc *RobinCoupling) NumDof(mg *mortar.MortarGrid) int { return mg.NumCells }

// EffectiveDiffusivity returns k_n = 2 kappa_n / a per mortar cell for
// the given interface.
func (rc *RobinCoupling) EffectiveDiffusivity(mg *mortar.MortarGrid) ([]float64, error) {
	if len(rc.params.NormalDiffusivity) != mg.NumCells {
		return nil, fmt.Errorf("%w: %d normal diffusivities for %d mortar cells",
			ErrMissingOrInvalidParameter, len(rc.params.NormalDiffusivity), mg.NumCells)
	}
	if len(rc.params.Aperture) != mg.NumSecondaryCells() {
		return nil, fmt.Errorf("%w: %d apertures for %d secondary cells",
			scaling.ErrInvalidAperture, len(rc.params.Aperture), mg.NumSecondaryCells())
	}
	kn := make([]float64, mg.NumCells)
	for m := range kn {
		a := rc.params.Aperture[mg.SecondaryCellOf(m)]
		kn[m] = 2 * rc.params.NormalDiffusivity[m] / a
	}
	return kn, nil
}

// Discretize builds the local contribution coupling the mortar flux to
// the primary trace and the secondary cell pressure:
//
//	primary row:    +lambda transferred onto interface faces
//	secondary row:  -lambda as a source in secondary balances
//	mortar row:     lambda - k_n V_m (trace - p_secondary) = 0
func (rc *RobinCoupling) Discretize(primary, secondary *grid.Grid, mg *mortar.MortarGrid) (*Contribution, error) {
	if primary == nil || secondary == nil || primary.Dim-secondary.Dim != 1 {
		return nil, fmt.Errorf("%w: robin coupling requires subdomains one dimension apart",
			mortar.ErrDimensionMismatch)
	}
	if mg.NumPrimaryFaces() != primary.NumFaces || mg.NumSecondaryCells() != secondary.NumCells {
		return nil, fmt.Errorf("%w: mortar grid built against different subdomains",
			mortar.ErrDimensionMismatch)
	}
	kn, err := rc.EffectiveDiffusivity(mg)
	if err != nil {
		return nil, err
	}
	if sv := rc.params.SpecificVolume; sv != nil && len(sv) != mg.NumCells {
		return nil, fmt.Errorf("%w: %d specific volumes for %d mortar cells",
			scaling.ErrInvalidAperture, len(sv), mg.NumCells)
	}

	weight := make([]float64, mg.NumCells)
	for m := range weight {
		weight[m] = kn[m] * mg.CellVolume(m)
		if rc.params.SpecificVolume != nil {
			weight[m] *= rc.params.SpecificVolume[m]
		}
	}

	c := newContribution(primary.NumFaces, secondary.NumCells, mg.NumCells, 1)

	// Transport out of the primary side equals lambda; into the
	// secondary side it is a source. The projections carry the sign
	// convention, so no per-face sign flips appear here.
	c.addScaledCSR(SpacePrimary, SpaceMortar, mg.MortarToPrimaryInt(), nil, 1)
	c.addScaledCSR(SpaceSecondary, SpaceMortar, mg.MortarToSecondaryInt(), nil, -1)

	// The Robin law itself, integrated over each mortar cell:
	// lambda - k_n V_m (trace - p_secondary) = 0, so the flux runs
	// from the high-pressure side to the low-pressure side and a
	// positive lambda is transport from primary to secondary.
	c.addIdentity(SpaceMortar, 1)
	c.addScaledCSR(SpaceMortar, SpacePrimary, mg.PrimaryToMortarAvg(), weight, -1)
	c.addScaledCSR(SpaceMortar, SpaceSecondary, mg.SecondaryToMortarAvg(), weight, 1)

	return c, nil
}
