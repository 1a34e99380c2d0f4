package coupling

import (
	"errors"

	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
)

// ErrMissingOrInvalidParameter reports an absent or non-positive
// discretization parameter: normal diffusivity or stiffness on an
// interface, permeability on a subdomain.
var ErrMissingOrInvalidParameter = errors.New("missing or invalid interface parameter")

// InterfaceLaw is the capability shared by all interface-condition
// discretizations. Implementations are pure: Discretize reads the
// immutable grids and the law's own parameters and returns a fresh
// local contribution, or an error and nothing else.
//
// Every law enforces the mortar sign convention: a positive mortar
// unknown denotes transport from the primary to the secondary side,
// for flow and mechanics alike.
type InterfaceLaw interface {
	// NumDof returns the number of mortar unknowns the law attaches
	// to the interface.
	NumDof(mg *mortar.MortarGrid) int

	// Discretize produces the local coupling contribution for the
	// interface between primary and secondary.
	Discretize(primary, secondary *grid.Grid, mg *mortar.MortarGrid) (*Contribution, error)
}
