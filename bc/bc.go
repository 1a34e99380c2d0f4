// Package bc fixes the sign and coordinate conventions for boundary
// conditions. The rules are stateless and apply uniformly to every
// discretization:
//
//   - Flow Neumann values are integrated outward fluxes through the
//     face, positive for outflow, using the grid's own outward-normal
//     orientation. Callers never flip signs per face.
//   - Mechanics Dirichlet values are displacements and Neumann values
//     are tractions sigma.n, both in global Cartesian coordinates. No
//     normal/tangential decomposition happens at this layer.
//
// Untagged boundary faces default to homogeneous Neumann (no flow, no
// traction).
package bc

import (
	"errors"
	"fmt"

	"github.com/geoflux/mixdim/grid"
)

// ErrUnsupportedBoundaryType reports a boundary tag other than
// Dirichlet or Neumann, or a tag on a non-boundary face.
var ErrUnsupportedBoundaryType = errors.New("unsupported boundary type")

// Type tags the kind of condition imposed on a face.
type Type uint8

const (
	// Neumann prescribes a flux (flow) or traction (mechanics). The
	// zero value, so untagged faces are natural no-flux boundaries.
	Neumann Type = iota
	// Dirichlet prescribes a pressure (flow) or displacement
	// (mechanics).
	Dirichlet
)

func (t Type) String() string {
	switch t {
	case Dirichlet:
		return "Dirichlet"
	case Neumann:
		return "Neumann"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

func validate(t Type) error {
	if t != Dirichlet && t != Neumann {
		return fmt.Errorf("%w: %v", ErrUnsupportedBoundaryType, t)
	}
	return nil
}

// FlowBC holds per-face scalar conditions for a flow discretization on
// one subdomain grid.
type FlowBC struct {
	g      *grid.Grid
	types  map[int]Type
	values map[int]float64
}

// NewFlowBC creates an empty condition set for g; all boundary faces
// start as homogeneous Neumann.
func NewFlowBC(g *grid.Grid) *FlowBC {
	return &FlowBC{g: g, types: map[int]Type{}, values: map[int]float64{}}
}

// Set tags face with the given type and value. Dirichlet values are
// pressures; Neumann values are integrated outward fluxes (positive =
// outflow). Tagging an interior face or an unknown type fails.
func (b *FlowBC) Set(face int, t Type, value float64) error {
	if err := validate(t); err != nil {
		return err
	}
	if face < 0 || face >= b.g.NumFaces || !b.g.IsBoundaryFace(face) {
		return fmt.Errorf("%w: face %d is not a boundary face", ErrUnsupportedBoundaryType, face)
	}
	b.types[face] = t
	b.values[face] = value
	return nil
}

// TypeOf returns the tag of face, Neumann if untagged.
func (b *FlowBC) TypeOf(face int) Type { return b.types[face] }

// ValueOf returns the prescribed value of face, zero if untagged.
func (b *FlowBC) ValueOf(face int) float64 { return b.values[face] }

// MechBC holds per-face vector conditions for a mechanics
// discretization on one subdomain grid. All vectors are global
// Cartesian.
type MechBC struct {
	g      *grid.Grid
	types  map[int]Type
	values map[int][3]float64
}

// NewMechBC creates an empty condition set for g; all boundary faces
// start as homogeneous Neumann (traction free).
func NewMechBC(g *grid.Grid) *MechBC {
	return &MechBC{g: g, types: map[int]Type{}, values: map[int][3]float64{}}
}

// Set tags face with the given type and vector value. Dirichlet values
// are displacements, Neumann values are tractions sigma.n, both in
// global coordinates.
func (b *MechBC) Set(face int, t Type, value [3]float64) error {
	if err := validate(t); err != nil {
		return err
	}
	if face < 0 || face >= b.g.NumFaces || !b.g.IsBoundaryFace(face) {
		return fmt.Errorf("%w: face %d is not a boundary face", ErrUnsupportedBoundaryType, face)
	}
	b.types[face] = t
	b.values[face] = value
	return nil
}

// TypeOf returns the tag of face, Neumann if untagged.
func (b *MechBC) TypeOf(face int) Type { return b.types[face] }

// ValueOf returns the prescribed vector of face, zero if untagged.
func (b *MechBC) ValueOf(face int) [3]float64 { return b.values[face] }
