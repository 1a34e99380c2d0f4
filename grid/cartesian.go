package grid

import "fmt"

// Synthetic Cartesian grids with known orientation. These back the test
// suites and the worked examples; production meshes arrive through
// NewGrid from an external mesh collaborator.

// NewCartesian2D builds an nx by ny grid of dx by dy cells in the xy
// plane with lower-left corner at origin. Cell (i, j) has index
// j*nx + i. Faces are ordered x-normal first (index j*(nx+1) + i),
// then y-normal (offset (nx+1)*ny, index j*nx + i); stored normals
// point in +x and +y.
func NewCartesian2D(nx, ny int, dx, dy float64, origin [3]float64) (*Grid, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: cartesian grid %dx%d", ErrInvalidTopology, nx, ny)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("%w: cell size %gx%g", ErrInvalidTopology, dx, dy)
	}

	numCells := nx * ny
	numXFaces := (nx + 1) * ny
	numYFaces := nx * (ny + 1)

	cfg := Config{
		Dim:         2,
		FaceNormals: make([][3]float64, numXFaces+numYFaces),
		FaceCenters: make([][3]float64, numXFaces+numYFaces),
		CellCenters: make([][3]float64, numCells),
		CellVolumes: make([]float64, numCells),
		FaceCells:   make([][]int, numXFaces+numYFaces),
	}

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := j*nx + i
			cfg.CellCenters[c] = [3]float64{
				origin[0] + (float64(i)+0.5)*dx,
				origin[1] + (float64(j)+0.5)*dy,
				origin[2],
			}
			cfg.CellVolumes[c] = dx * dy
		}
	}

	// x-normal faces: vertical edges of length dy.
	for j := 0; j < ny; j++ {
		for i := 0; i <= nx; i++ {
			f := j*(nx+1) + i
			cfg.FaceNormals[f] = [3]float64{dy, 0, 0}
			cfg.FaceCenters[f] = [3]float64{
				origin[0] + float64(i)*dx,
				origin[1] + (float64(j)+0.5)*dy,
				origin[2],
			}
			var cells []int
			if i > 0 {
				cells = append(cells, j*nx+i-1)
			}
			if i < nx {
				cells = append(cells, j*nx+i)
			}
			cfg.FaceCells[f] = cells
		}
	}

	// y-normal faces: horizontal edges of length dx.
	for j := 0; j <= ny; j++ {
		for i := 0; i < nx; i++ {
			f := numXFaces + j*nx + i
			cfg.FaceNormals[f] = [3]float64{0, dx, 0}
			cfg.FaceCenters[f] = [3]float64{
				origin[0] + (float64(i)+0.5)*dx,
				origin[1] + float64(j)*dy,
				origin[2],
			}
			var cells []int
			if j > 0 {
				cells = append(cells, (j-1)*nx+i)
			}
			if j < ny {
				cells = append(cells, j*nx+i)
			}
			cfg.FaceCells[f] = cells
		}
	}

	return NewGrid(cfg)
}

// NewTensorLine builds a 1-D grid of n cells of length dx along the x
// axis, starting at origin. Faces carry unit measure (a point has no
// area); stored normals point in +x.
func NewTensorLine(n int, dx float64, origin [3]float64) (*Grid, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: line grid with %d cells", ErrInvalidTopology, n)
	}
	if dx <= 0 {
		return nil, fmt.Errorf("%w: cell size %g", ErrInvalidTopology, dx)
	}

	cfg := Config{
		Dim:         1,
		FaceNormals: make([][3]float64, n+1),
		FaceCenters: make([][3]float64, n+1),
		CellCenters: make([][3]float64, n),
		CellVolumes: make([]float64, n),
		FaceCells:   make([][]int, n+1),
	}

	for c := 0; c < n; c++ {
		cfg.CellCenters[c] = [3]float64{origin[0] + (float64(c)+0.5)*dx, origin[1], origin[2]}
		cfg.CellVolumes[c] = dx
	}
	for f := 0; f <= n; f++ {
		cfg.FaceNormals[f] = [3]float64{1, 0, 0}
		cfg.FaceCenters[f] = [3]float64{origin[0] + float64(f)*dx, origin[1], origin[2]}
		var cells []int
		if f > 0 {
			cells = append(cells, f-1)
		}
		if f < n {
			cells = append(cells, f)
		}
		cfg.FaceCells[f] = cells
	}

	return NewGrid(cfg)
}

// XFaceIndex returns the face index of the x-normal face at column i,
// row j of an nx by ny Cartesian grid built by NewCartesian2D.
func XFaceIndex(nx int, i, j int) int { return j*(nx+1) + i }

// YFaceIndex returns the face index of the y-normal face below row j
// (j ranges 0..ny) at column i of an nx by ny Cartesian grid.
func YFaceIndex(nx, ny int, i, j int) int { return (nx+1)*ny + j*nx + i }
