package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
)

// ErrInvalidTopology reports an inconsistency between the supplied
// connectivity and the metric data, or an access to a face/cell pair
// that is not connected.
var ErrInvalidTopology = errors.New("invalid grid topology")

// Grid holds face/cell topology and metric data for a single subdomain
// of topological dimension Dim, embedded in three physical dimensions.
// A Grid is immutable after construction.
//
// Face normals are area weighted: the magnitude of FaceNormal(f) equals
// the face area, the direction is arbitrary but fixed per face. The
// signed cell-face incidence is +1 where the stored normal points out
// of the cell and -1 where it points in. The incidence is the sole
// source of sign information for every discretization built on top of
// the grid; no consumer is allowed to re-derive orientations.
type Grid struct {
	Dim      int
	NumCells int
	NumFaces int

	faceNormals [][3]float64
	faceCenters [][3]float64
	faceAreas   []float64
	cellCenters [][3]float64
	cellVolumes []float64

	faceCells [][]int // bordering cells per face, one or two entries

	cellFaces *sparse.CSR // faces x cells, entries in {-1, +1}
	div       *sparse.CSR // cells x faces, signed divergence
	absDiv    *sparse.CSR // cells x faces, unsigned face-to-cell scatter
}

// Config carries the raw mesh data needed to build a Grid. The
// connectivity lists the bordering cells of each face; orientation
// signs are derived from the stored normals and the face/cell centers,
// so the mesh collaborator never supplies signs directly.
type Config struct {
	Dim         int
	FaceNormals [][3]float64 // area weighted, fixed orientation per face
	FaceCenters [][3]float64
	CellCenters [][3]float64
	CellVolumes []float64 // native d-dimensional measure
	FaceCells   [][]int   // per face: one (boundary) or two bordering cells
}

// NewGrid validates the mesh data and builds the signed incidence and
// divergence operators. The orientation sign for a (face, cell) pair is
// the sign of the dot product between the stored face normal and the
// vector from the cell center to the face center.
func NewGrid(cfg Config) (*Grid, error) {
	if cfg.Dim < 0 || cfg.Dim > 3 {
		return nil, fmt.Errorf("%w: dimension %d outside [0, 3]", ErrInvalidTopology, cfg.Dim)
	}
	numFaces := len(cfg.FaceNormals)
	numCells := len(cfg.CellCenters)
	if numCells == 0 {
		return nil, fmt.Errorf("%w: grid has no cells", ErrInvalidTopology)
	}
	if len(cfg.FaceCenters) != numFaces || len(cfg.FaceCells) != numFaces {
		return nil, fmt.Errorf("%w: face arrays disagree: %d normals, %d centers, %d connectivity rows",
			ErrInvalidTopology, numFaces, len(cfg.FaceCenters), len(cfg.FaceCells))
	}
	if len(cfg.CellVolumes) != numCells {
		return nil, fmt.Errorf("%w: %d cell volumes for %d cells",
			ErrInvalidTopology, len(cfg.CellVolumes), numCells)
	}
	for c, v := range cfg.CellVolumes {
		if v <= 0 {
			return nil, fmt.Errorf("%w: non-positive volume %g for cell %d", ErrInvalidTopology, v, c)
		}
	}

	g := &Grid{
		Dim:         cfg.Dim,
		NumCells:    numCells,
		NumFaces:    numFaces,
		faceNormals: append([][3]float64(nil), cfg.FaceNormals...),
		faceCenters: append([][3]float64(nil), cfg.FaceCenters...),
		cellCenters: append([][3]float64(nil), cfg.CellCenters...),
		cellVolumes: append([]float64(nil), cfg.CellVolumes...),
		faceAreas:   make([]float64, numFaces),
		faceCells:   make([][]int, numFaces),
	}

	incidence := sparse.NewDOK(numFaces, numCells)
	divergence := sparse.NewDOK(numCells, numFaces)
	scatter := sparse.NewDOK(numCells, numFaces)

	for f := 0; f < numFaces; f++ {
		n := g.faceNormals[f]
		area := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if area <= 0 {
			return nil, fmt.Errorf("%w: zero normal for face %d", ErrInvalidTopology, f)
		}
		g.faceAreas[f] = area

		cells := cfg.FaceCells[f]
		if len(cells) < 1 || len(cells) > 2 {
			return nil, fmt.Errorf("%w: face %d borders %d cells", ErrInvalidTopology, f, len(cells))
		}
		g.faceCells[f] = append([]int(nil), cells...)

		for _, c := range cells {
			if c < 0 || c >= numCells {
				return nil, fmt.Errorf("%w: face %d references cell %d of %d",
					ErrInvalidTopology, f, c, numCells)
			}
			dot := 0.0
			for k := 0; k < 3; k++ {
				dot += n[k] * (g.faceCenters[f][k] - g.cellCenters[c][k])
			}
			if dot == 0 {
				return nil, fmt.Errorf("%w: face %d normal is tangential to cell %d",
					ErrInvalidTopology, f, c)
			}
			sign := 1.0
			if dot < 0 {
				sign = -1.0
			}
			incidence.Set(f, c, sign)
			divergence.Set(c, f, sign)
			scatter.Set(c, f, 1)
		}
		if len(cells) == 2 && cells[0] == cells[1] {
			return nil, fmt.Errorf("%w: face %d lists cell %d twice", ErrInvalidTopology, f, cells[0])
		}
	}

	g.cellFaces = incidence.ToCSR()
	g.div = divergence.ToCSR()
	g.absDiv = scatter.ToCSR()
	return g, nil
}

// FaceNormal returns the area-weighted normal of face f.
func (g *Grid) FaceNormal(f int) [3]float64 { return g.faceNormals[f] }

// FaceArea returns the area (measure) of face f.
func (g *Grid) FaceArea(f int) float64 { return g.faceAreas[f] }

// FaceCenter returns the centroid of face f.
func (g *Grid) FaceCenter(f int) [3]float64 { return g.faceCenters[f] }

// CellCenter returns the centroid of cell c.
func (g *Grid) CellCenter(c int) [3]float64 { return g.cellCenters[c] }

// CellVolume returns the native d-dimensional measure of cell c. The
// physical volume is obtained by multiplying with the cell's specific
// volume, which is owned by the scaling package.
func (g *Grid) CellVolume(c int) float64 { return g.cellVolumes[c] }

// CellVolumes returns a copy of the native cell measures.
func (g *Grid) CellVolumes() []float64 {
	return append([]float64(nil), g.cellVolumes...)
}

// FaceCellsOf returns the cells bordering face f (one for boundary
// faces, two for interior faces).
func (g *Grid) FaceCellsOf(f int) []int {
	return append([]int(nil), g.faceCells[f]...)
}

// IsBoundaryFace reports whether face f borders exactly one cell.
func (g *Grid) IsBoundaryFace(f int) bool { return len(g.faceCells[f]) == 1 }

// BoundaryFaces returns the indices of all boundary faces in ascending
// order.
func (g *Grid) BoundaryFaces() []int {
	var out []int
	for f := 0; f < g.NumFaces; f++ {
		if len(g.faceCells[f]) == 1 {
			out = append(out, f)
		}
	}
	return out
}

// Incidence returns the signed cell-face incidence of the (face, cell)
// pair: +1 if the stored normal of f points out of c, -1 if it points
// in, 0 if f does not border c.
func (g *Grid) Incidence(face, cell int) float64 {
	if face < 0 || face >= g.NumFaces || cell < 0 || cell >= g.NumCells {
		return 0
	}
	return g.cellFaces.At(face, cell)
}

// OutwardNormal returns the area-weighted normal of face oriented out
// of cell. It fails if the face does not border the cell.
func (g *Grid) OutwardNormal(cell, face int) ([3]float64, error) {
	s := g.Incidence(face, cell)
	if s == 0 {
		return [3]float64{}, fmt.Errorf("%w: face %d does not border cell %d",
			ErrInvalidTopology, face, cell)
	}
	n := g.faceNormals[face]
	return [3]float64{s * n[0], s * n[1], s * n[2]}, nil
}

// CellFaces returns the signed incidence operator (faces x cells).
// The returned matrix is shared and must be treated as read-only.
func (g *Grid) CellFaces() *sparse.CSR { return g.cellFaces }

// Divergence returns the discrete divergence operator (cells x faces):
// applied to a face-oriented flux vector it yields the net signed
// outflow per cell. Shared, read-only.
func (g *Grid) Divergence() *sparse.CSR { return g.div }

// AbsDivergence returns the unsigned face-to-cell scatter (cells x
// faces), the |div| operator used to route extensive interface fluxes
// into cell balances. Shared, read-only.
func (g *Grid) AbsDivergence() *sparse.CSR { return g.absDiv }

// Verify sweeps the construction invariants: every incidence entry is
// +/-1, every face borders one or two distinct cells, and every outward
// normal points away from its cell centroid.
func (g *Grid) Verify() error {
	for f := 0; f < g.NumFaces; f++ {
		cells := g.faceCells[f]
		if len(cells) < 1 || len(cells) > 2 {
			return fmt.Errorf("%w: face %d borders %d cells", ErrInvalidTopology, f, len(cells))
		}
		for _, c := range cells {
			s := g.cellFaces.At(f, c)
			if s != 1 && s != -1 {
				return fmt.Errorf("%w: incidence[%d,%d] = %g", ErrInvalidTopology, f, c, s)
			}
			n, err := g.OutwardNormal(c, f)
			if err != nil {
				return err
			}
			dot := 0.0
			for k := 0; k < 3; k++ {
				dot += n[k] * (g.faceCenters[f][k] - g.cellCenters[c][k])
			}
			if dot <= 0 {
				return fmt.Errorf("%w: outward normal of face %d points into cell %d",
					ErrInvalidTopology, f, c)
			}
		}
	}
	return nil
}
