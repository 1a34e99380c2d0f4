// Package mortar implements the interface grids coupling a subdomain of
// dimension d to its dimension d-1 neighbor, together with the linear
// projections between mortar cells, primary-side faces and
// secondary-side cells.
//
// Sign convention, owned here and enforced by every interface law: a
// positive mortar flux denotes transport from the primary (higher
// dimensional) side to the secondary (lower dimensional) side. The
// convention is independent of cell/face numbering and of the stored
// orientation of primary face normals.
package mortar

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/geoflux/mixdim/grid"
)

// ErrDimensionMismatch reports interface grids whose subdomains are not
// exactly one topological dimension apart, or malformed cell maps.
var ErrDimensionMismatch = errors.New("interface dimension mismatch")

// CellMap associates one mortar cell with a primary-side face and a
// secondary-side cell. Weight is the fraction of the primary face
// covered by the mortar cell; zero means the full face (weight one).
// When a face is split across several mortar cells the weights must
// sum to one per face.
type CellMap struct {
	Face   int
	Cell   int
	Weight float64
}

// MortarGrid is the interface grid between two subdomains one dimension
// apart. Immutable after construction.
type MortarGrid struct {
	Dim      int // equals the secondary subdomain dimension
	NumCells int

	numPrimaryFaces   int
	numSecondaryCells int

	cellVolumes []float64 // mortar cell measure, from primary face areas
	faceOf      []int     // primary face per mortar cell
	cellOf      []int     // secondary cell per mortar cell
	weights     []float64

	primaryToMortarAvg   *sparse.CSR // mortar x faces, rows of ones
	primaryToMortarInt   *sparse.CSR // mortar x faces, split weights
	secondaryToMortarAvg *sparse.CSR // mortar x cells, rows of ones
	mortarToPrimaryInt   *sparse.CSR // faces x mortar, extensive gather
	mortarToSecondaryInt *sparse.CSR // cells x mortar, extensive gather
}

// NewMortarGrid builds the interface grid between primary and secondary
// from one CellMap entry per mortar cell. The subdomains must be
// exactly one dimension apart; every referenced face must be a primary
// face and every referenced cell a secondary cell.
func NewMortarGrid(primary, secondary *grid.Grid, cells []CellMap) (*MortarGrid, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("%w: nil subdomain grid", ErrDimensionMismatch)
	}
	if primary.Dim-secondary.Dim != 1 {
		return nil, fmt.Errorf("%w: primary dimension %d, secondary dimension %d",
			ErrDimensionMismatch, primary.Dim, secondary.Dim)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: interface has no mortar cells", ErrDimensionMismatch)
	}

	n := len(cells)
	mg := &MortarGrid{
		Dim:               secondary.Dim,
		NumCells:          n,
		numPrimaryFaces:   primary.NumFaces,
		numSecondaryCells: secondary.NumCells,
		cellVolumes:       make([]float64, n),
		faceOf:            make([]int, n),
		cellOf:            make([]int, n),
		weights:           make([]float64, n),
	}

	p2mAvg := sparse.NewDOK(n, primary.NumFaces)
	p2mInt := sparse.NewDOK(n, primary.NumFaces)
	s2mAvg := sparse.NewDOK(n, secondary.NumCells)
	m2pInt := sparse.NewDOK(primary.NumFaces, n)
	m2sInt := sparse.NewDOK(secondary.NumCells, n)

	for m, cm := range cells {
		if cm.Face < 0 || cm.Face >= primary.NumFaces {
			return nil, fmt.Errorf("%w: mortar cell %d references primary face %d of %d",
				ErrDimensionMismatch, m, cm.Face, primary.NumFaces)
		}
		if cm.Cell < 0 || cm.Cell >= secondary.NumCells {
			return nil, fmt.Errorf("%w: mortar cell %d references secondary cell %d of %d",
				ErrDimensionMismatch, m, cm.Cell, secondary.NumCells)
		}
		w := cm.Weight
		if w == 0 {
			w = 1
		}
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("%w: mortar cell %d has weight %g", ErrDimensionMismatch, m, w)
		}

		mg.faceOf[m] = cm.Face
		mg.cellOf[m] = cm.Cell
		mg.weights[m] = w
		mg.cellVolumes[m] = w * primary.FaceArea(cm.Face)

		// Intensive quantities transfer by value: each mortar cell
		// reads the full face or cell value. Extensive quantities
		// split by coverage weight on the way to faces and sum on the
		// way back.
		p2mAvg.Set(m, cm.Face, 1)
		p2mInt.Set(m, cm.Face, w)
		s2mAvg.Set(m, cm.Cell, 1)
		m2pInt.Set(cm.Face, m, 1)
		m2sInt.Set(cm.Cell, m, 1)
	}

	mg.primaryToMortarAvg = p2mAvg.ToCSR()
	mg.primaryToMortarInt = p2mInt.ToCSR()
	mg.secondaryToMortarAvg = s2mAvg.ToCSR()
	mg.mortarToPrimaryInt = m2pInt.ToCSR()
	mg.mortarToSecondaryInt = m2sInt.ToCSR()

	if err := mg.Verify(); err != nil {
		return nil, err
	}
	return mg, nil
}

// CellVolume returns the measure of mortar cell m (the covered part of
// its primary face).
func (mg *MortarGrid) CellVolume(m int) float64 { return mg.cellVolumes[m] }

// PrimaryFaceOf returns the primary face associated with mortar cell m.
func (mg *MortarGrid) PrimaryFaceOf(m int) int { return mg.faceOf[m] }

// SecondaryCellOf returns the secondary cell associated with mortar
// cell m.
func (mg *MortarGrid) SecondaryCellOf(m int) int { return mg.cellOf[m] }

// NumPrimaryFaces returns the face count of the primary subdomain the
// projections were built against.
func (mg *MortarGrid) NumPrimaryFaces() int { return mg.numPrimaryFaces }

// NumSecondaryCells returns the cell count of the secondary subdomain
// the projections were built against.
func (mg *MortarGrid) NumSecondaryCells() int { return mg.numSecondaryCells }

// PrimaryToMortarAvg projects intensive face values (pressure traces)
// onto mortar cells. Shared, read-only.
func (mg *MortarGrid) PrimaryToMortarAvg() *sparse.CSR { return mg.primaryToMortarAvg }

// PrimaryToMortarInt projects extensive face quantities (integrated
// fluxes) onto mortar cells, splitting by coverage weight. Shared,
// read-only.
func (mg *MortarGrid) PrimaryToMortarInt() *sparse.CSR { return mg.primaryToMortarInt }

// SecondaryToMortarAvg projects intensive secondary cell values onto
// mortar cells. Shared, read-only.
func (mg *MortarGrid) SecondaryToMortarAvg() *sparse.CSR { return mg.secondaryToMortarAvg }

// MortarToPrimaryInt gathers extensive mortar quantities onto primary
// faces, summing split contributions. Shared, read-only.
func (mg *MortarGrid) MortarToPrimaryInt() *sparse.CSR { return mg.mortarToPrimaryInt }

// MortarToSecondaryInt gathers extensive mortar quantities onto
// secondary cells. Shared, read-only.
func (mg *MortarGrid) MortarToSecondaryInt() *sparse.CSR { return mg.mortarToSecondaryInt }

// Verify checks transfer conservation: every averaging row sums to one
// (values transfer unscaled) and the splitting weights of each primary
// face sum to one (extensive quantities conserve under splitting).
func (mg *MortarGrid) Verify() error {
	for m := 0; m < mg.NumCells; m++ {
		rowSum := 0.0
		for f := 0; f < mg.numPrimaryFaces; f++ {
			rowSum += mg.primaryToMortarAvg.At(m, f)
		}
		if math.Abs(rowSum-1) > 1e-12 {
			return fmt.Errorf("%w: primary averaging row %d sums to %g",
				ErrDimensionMismatch, m, rowSum)
		}
		rowSum = 0
		for c := 0; c < mg.numSecondaryCells; c++ {
			rowSum += mg.secondaryToMortarAvg.At(m, c)
		}
		if math.Abs(rowSum-1) > 1e-12 {
			return fmt.Errorf("%w: secondary averaging row %d sums to %g",
				ErrDimensionMismatch, m, rowSum)
		}
	}

	// Per-face split weights.
	faceWeight := make(map[int]float64)
	for m := 0; m < mg.NumCells; m++ {
		faceWeight[mg.faceOf[m]] += mg.weights[m]
	}
	for f, w := range faceWeight {
		if math.Abs(w-1) > 1e-12 {
			return fmt.Errorf("%w: split weights of primary face %d sum to %g",
				ErrDimensionMismatch, f, w)
		}
	}
	return nil
}
