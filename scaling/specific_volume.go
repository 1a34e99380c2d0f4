// Package scaling owns the aperture based dimension-reduction factors
// that relate native grid measures to true physical volumes.
//
// A subdomain of dimension d embedded in an ambient dimension nd has a
// per-cell specific volume of dimension [length]^(nd-d): 1 in the
// matrix, the aperture in a fracture, the cross-sectional area in a
// one-dimensional intersection. Specific volumes scale volumetric,
// source and tangential-flow quantities only. Permeability-type
// parameters are absolute and must never be scaled here; any aperture
// effect on flow resistance enters through the interface law.
package scaling

import (
	"errors"
	"fmt"

	"github.com/geoflux/mixdim/grid"
)

// ErrInvalidAperture reports a non-positive aperture or an aperture
// field of the wrong shape.
var ErrInvalidAperture = errors.New("invalid aperture")

// SpecificVolume is a per-cell scaling factor converting native cell
// measure to physical volume.
type SpecificVolume []float64

// FromAperture derives specific volumes from a per-cell aperture field
// for a subdomain of dimension dim in ambient dimension ambient:
// v = a^(ambient-dim). Apertures must be strictly positive even when
// the exponent is zero, so a bad field is caught in the matrix too.
func FromAperture(aperture []float64, dim, ambient int) (SpecificVolume, error) {
	if dim < 0 || ambient < dim || ambient > 3 {
		return nil, fmt.Errorf("%w: dimension %d in ambient %d", ErrInvalidAperture, dim, ambient)
	}
	if len(aperture) == 0 {
		return nil, fmt.Errorf("%w: empty aperture field", ErrInvalidAperture)
	}
	v := make(SpecificVolume, len(aperture))
	for c, a := range aperture {
		if a <= 0 {
			return nil, fmt.Errorf("%w: aperture %g in cell %d", ErrInvalidAperture, a, c)
		}
		pow := 1.0
		for k := 0; k < ambient-dim; k++ {
			pow *= a
		}
		v[c] = pow
	}
	return v, nil
}

// Uniform returns a constant specific volume field.
func Uniform(value float64, numCells int) (SpecificVolume, error) {
	if value <= 0 {
		return nil, fmt.Errorf("%w: specific volume %g", ErrInvalidAperture, value)
	}
	v := make(SpecificVolume, numCells)
	for c := range v {
		v[c] = value
	}
	return v, nil
}

// Compose multiplies in a per-cell factor inherited from the next
// dimension up the hierarchy (for codimension two and beyond the
// caller composes one reduction step at a time; the convention defines
// a single step only).
func (v SpecificVolume) Compose(inherited []float64) (SpecificVolume, error) {
	if len(inherited) != len(v) {
		return nil, fmt.Errorf("%w: composing %d factors into %d cells",
			ErrInvalidAperture, len(inherited), len(v))
	}
	out := make(SpecificVolume, len(v))
	for c := range v {
		if inherited[c] <= 0 {
			return nil, fmt.Errorf("%w: inherited factor %g in cell %d",
				ErrInvalidAperture, inherited[c], c)
		}
		out[c] = v[c] * inherited[c]
	}
	return out, nil
}

// PhysicalVolumes returns native cell volume times specific volume for
// every cell of g.
func (v SpecificVolume) PhysicalVolumes(g *grid.Grid) ([]float64, error) {
	if len(v) != g.NumCells {
		return nil, fmt.Errorf("%w: %d specific volumes for %d cells",
			ErrInvalidAperture, len(v), g.NumCells)
	}
	out := make([]float64, g.NumCells)
	for c := range out {
		out[c] = g.CellVolume(c) * v[c]
	}
	return out, nil
}
