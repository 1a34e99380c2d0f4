// Package tpfa discretizes single-phase Darcy flow on one subdomain
// grid with the two-point flux approximation. It is a straightforward
// consumer of the grid's sign conventions and of the bc package's
// boundary rules; interface fluxes reach it only through the assembled
// coupling terms.
package tpfa

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/geoflux/mixdim/bc"
	"github.com/geoflux/mixdim/coupling"
	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/scaling"
)

// System is the local operator and right-hand side of one subdomain,
// plus the trace-reconstruction operators needed to express the
// pressure on (interface) faces:
//
//	trace = BoundPressureCell*p + BoundPressureFace*(BoundValues + interface flux)
//
// where the flux argument is the integrated outward flux through each
// boundary face.
type System struct {
	Matrix *sparse.CSR // cells x cells
	RHS    []float64

	BoundPressureCell *sparse.CSR // faces x cells
	BoundPressureFace *sparse.CSR // faces x faces
	BoundValues       []float64   // per face: Dirichlet pressure or integrated Neumann outward flux

	numCells  int
	halfTrans [][]float64 // parallel to grid faceCells: one half transmissibility per side
}

// Discretize builds the TPFA system for g with absolute (never
// aperture-scaled) cell permeabilities and the given boundary
// conditions. Interface faces are left as homogeneous Neumann; their
// flux arrives through the interface coupling at assembly time.
func Discretize(g *grid.Grid, perm []float64, bcs *bc.FlowBC) (*System, error) {
	if len(perm) != g.NumCells {
		return nil, fmt.Errorf("%w: %d permeabilities for %d cells",
			coupling.ErrMissingOrInvalidParameter, len(perm), g.NumCells)
	}
	for c, k := range perm {
		if k <= 0 {
			return nil, fmt.Errorf("%w: permeability %g in cell %d",
				coupling.ErrMissingOrInvalidParameter, k, c)
		}
	}
	if bcs == nil {
		bcs = bc.NewFlowBC(g)
	}

	s := &System{
		RHS:         make([]float64, g.NumCells),
		BoundValues: make([]float64, g.NumFaces),
		numCells:    g.NumCells,
		halfTrans:   make([][]float64, g.NumFaces),
	}

	a := sparse.NewDOK(g.NumCells, g.NumCells)
	bpc := sparse.NewDOK(g.NumFaces, g.NumCells)
	bpf := sparse.NewDOK(g.NumFaces, g.NumFaces)

	add := func(i, j int, v float64) { a.Set(i, j, a.At(i, j)+v) }

	for f := 0; f < g.NumFaces; f++ {
		cells := g.FaceCellsOf(f)
		s.halfTrans[f] = make([]float64, len(cells))
		for i, c := range cells {
			ht, err := halfTransmissibility(g, f, c, perm[c])
			if err != nil {
				return nil, err
			}
			s.halfTrans[f][i] = ht
		}

		if len(cells) == 2 {
			i, j := cells[0], cells[1]
			ti, tj := s.halfTrans[f][0], s.halfTrans[f][1]
			T := ti * tj / (ti + tj)
			add(i, i, T)
			add(j, j, T)
			add(i, j, -T)
			add(j, i, -T)
			continue
		}

		c := cells[0]
		t := s.halfTrans[f][0]
		switch bcs.TypeOf(f) {
		case bc.Dirichlet:
			v := bcs.ValueOf(f)
			add(c, c, t)
			s.RHS[c] += t * v
			s.BoundValues[f] = v
			bpf.Set(f, f, 1)
		case bc.Neumann:
			// Integrated outward flux, positive for outflow; the
			// grid's own orientation, no sign flips here.
			v := bcs.ValueOf(f)
			s.RHS[c] -= v
			s.BoundValues[f] = v
			bpc.Set(f, c, 1)
			bpf.Set(f, f, -1/t)
		default:
			return nil, fmt.Errorf("%w: %v on face %d", bc.ErrUnsupportedBoundaryType, bcs.TypeOf(f), f)
		}
	}

	s.Matrix = a.ToCSR()
	s.BoundPressureCell = bpc.ToCSR()
	s.BoundPressureFace = bpf.ToCSR()
	return s, nil
}

func halfTransmissibility(g *grid.Grid, f, c int, perm float64) (float64, error) {
	n := g.FaceNormal(f)
	fc := g.FaceCenter(f)
	cc := g.CellCenter(c)
	area := g.FaceArea(f)

	// Distance from cell center to face, projected onto the face
	// normal direction.
	d := 0.0
	for k := 0; k < 3; k++ {
		d += n[k] / area * (fc[k] - cc[k])
	}
	d = math.Abs(d)
	if d <= 0 {
		return 0, fmt.Errorf("%w: cell %d center lies on face %d", grid.ErrInvalidTopology, c, f)
	}
	return perm * area / d, nil
}

// AddSource accumulates a volumetric source density q (per physical
// volume) into the right-hand side, scaled by the physical cell
// volumes: native measure times specific volume. This is the one place
// aperture scaling enters a subdomain discretization.
func (s *System) AddSource(g *grid.Grid, sv scaling.SpecificVolume, q []float64) error {
	if len(q) != g.NumCells {
		return fmt.Errorf("%w: %d sources for %d cells",
			coupling.ErrMissingOrInvalidParameter, len(q), g.NumCells)
	}
	vols, err := sv.PhysicalVolumes(g)
	if err != nil {
		return err
	}
	for c := range q {
		s.RHS[c] += q[c] * vols[c]
	}
	return nil
}

// FaceFlux reconstructs the integrated flux through every face, signed
// along the stored face normal, from a cell pressure solution.
// extFlux carries integrated outward fluxes imposed on boundary faces
// beyond the boundary conditions (interface fluxes); nil means none.
func (s *System) FaceFlux(g *grid.Grid, bcs *bc.FlowBC, p, extFlux []float64) ([]float64, error) {
	if len(p) != g.NumCells {
		return nil, fmt.Errorf("%w: %d pressures for %d cells",
			coupling.ErrMissingOrInvalidParameter, len(p), g.NumCells)
	}
	if bcs == nil {
		bcs = bc.NewFlowBC(g)
	}
	q := make([]float64, g.NumFaces)
	for f := 0; f < g.NumFaces; f++ {
		cells := g.FaceCellsOf(f)
		if len(cells) == 2 {
			i, j := cells[0], cells[1]
			ti, tj := s.halfTrans[f][0], s.halfTrans[f][1]
			T := ti * tj / (ti + tj)
			// Oriented from the cell the normal points out of.
			up, down := i, j
			if g.Incidence(f, i) < 0 {
				up, down = j, i
			}
			q[f] = T * (p[up] - p[down])
			continue
		}
		c := cells[0]
		sign := g.Incidence(f, c)
		switch bcs.TypeOf(f) {
		case bc.Dirichlet:
			q[f] = sign * s.halfTrans[f][0] * (p[c] - bcs.ValueOf(f))
		case bc.Neumann:
			out := bcs.ValueOf(f)
			if extFlux != nil {
				out += extFlux[f]
			}
			q[f] = sign * out
		}
	}
	return q, nil
}

// NumCells returns the cell count the system was discretized on.
func (s *System) NumCells() int { return s.numCells }
