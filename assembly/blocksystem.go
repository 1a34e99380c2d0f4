// Package assembly composes subdomain discretizations and interface
// couplings into one mixed-dimensional linear system and solves it.
package assembly

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrBlockLayout reports references to unknown blocks or operands whose
// shape disagrees with the declared block layout.
var ErrBlockLayout = errors.New("block layout error")

// Block declares one named segment of the global unknown vector.
type Block struct {
	ID   string
	Size int
}

// nonZeroDoer is the sparse iteration surface shared by the CSR
// matrices of the grid and mortar packages.
type nonZeroDoer interface {
	DoNonZero(fn func(i, j int, v float64))
}

// BlockSystem is a global linear system addressed by block, safe for
// concurrent accumulation. The layout is fixed at construction; Add
// and AddRHS accumulate, never overwrite.
type BlockSystem struct {
	mu     sync.Mutex
	order  []Block
	offset map[string]int
	size   map[string]int
	total  int

	a   *mat.Dense
	rhs *mat.VecDense
}

// NewBlockSystem allocates a zero system with the given block layout.
func NewBlockSystem(blocks []Block) (*BlockSystem, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no blocks declared", ErrBlockLayout)
	}
	bs := &BlockSystem{
		order:  make([]Block, len(blocks)),
		offset: make(map[string]int, len(blocks)),
		size:   make(map[string]int, len(blocks)),
	}
	copy(bs.order, blocks)
	for _, b := range blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: empty block id", ErrBlockLayout)
		}
		if b.Size <= 0 {
			return nil, fmt.Errorf("%w: block %q has size %d", ErrBlockLayout, b.ID, b.Size)
		}
		if _, dup := bs.offset[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate block %q", ErrBlockLayout, b.ID)
		}
		bs.offset[b.ID] = bs.total
		bs.size[b.ID] = b.Size
		bs.total += b.Size
	}
	bs.a = mat.NewDense(bs.total, bs.total, nil)
	bs.rhs = mat.NewVecDense(bs.total, nil)
	return bs, nil
}

// TotalSize returns the number of scalar unknowns.
func (bs *BlockSystem) TotalSize() int { return bs.total }

// Blocks returns the layout in declaration order.
func (bs *BlockSystem) Blocks() []Block {
	out := make([]Block, len(bs.order))
	copy(out, bs.order)
	return out
}

// Offset returns the global index of the first unknown of block id.
func (bs *BlockSystem) Offset(id string) (int, error) {
	off, ok := bs.offset[id]
	if !ok {
		return 0, fmt.Errorf("%w: unknown block %q", ErrBlockLayout, id)
	}
	return off, nil
}

// Size returns the number of unknowns in block id.
func (bs *BlockSystem) Size(id string) (int, error) {
	n, ok := bs.size[id]
	if !ok {
		return 0, fmt.Errorf("%w: unknown block %q", ErrBlockLayout, id)
	}
	return n, nil
}

// Add accumulates m onto the (row, col) block. Safe for concurrent
// use. Sparse operands accumulate by their nonzeros.
func (bs *BlockSystem) Add(row, col string, m mat.Matrix) error {
	ro, err := bs.Offset(row)
	if err != nil {
		return err
	}
	co, err := bs.Offset(col)
	if err != nil {
		return err
	}
	r, c := m.Dims()
	if r != bs.size[row] || c != bs.size[col] {
		return fmt.Errorf("%w: %dx%d operand for %dx%d block (%q, %q)",
			ErrBlockLayout, r, c, bs.size[row], bs.size[col], row, col)
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if nz, ok := m.(nonZeroDoer); ok {
		nz.DoNonZero(func(i, j int, v float64) {
			bs.a.Set(ro+i, co+j, bs.a.At(ro+i, co+j)+v)
		})
		return nil
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				bs.a.Set(ro+i, co+j, bs.a.At(ro+i, co+j)+v)
			}
		}
	}
	return nil
}

// AddRHS accumulates v onto block id of the right-hand side. Safe for
// concurrent use.
func (bs *BlockSystem) AddRHS(id string, v mat.Vector) error {
	off, err := bs.Offset(id)
	if err != nil {
		return err
	}
	if v.Len() != bs.size[id] {
		return fmt.Errorf("%w: %d-vector for block %q of size %d",
			ErrBlockLayout, v.Len(), id, bs.size[id])
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	for i := 0; i < v.Len(); i++ {
		bs.rhs.SetVec(off+i, bs.rhs.AtVec(off+i)+v.AtVec(i))
	}
	return nil
}

// Solve factors the assembled matrix and returns the full solution
// vector, addressable through BlockOf.
func (bs *BlockSystem) Solve() ([]float64, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	var x mat.VecDense
	if err := x.SolveVec(bs.a, bs.rhs); err != nil {
		return nil, fmt.Errorf("solving %d-dof block system: %w", bs.total, err)
	}
	out := make([]float64, bs.total)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// BlockOf extracts block id from a full solution vector.
func (bs *BlockSystem) BlockOf(x []float64, id string) ([]float64, error) {
	off, err := bs.Offset(id)
	if err != nil {
		return nil, err
	}
	if len(x) != bs.total {
		return nil, fmt.Errorf("%w: %d-vector for a %d-dof system", ErrBlockLayout, len(x), bs.total)
	}
	out := make([]float64, bs.size[id])
	copy(out, x[off:off+bs.size[id]])
	return out, nil
}

// Matrix returns a read-only view of the assembled operator.
func (bs *BlockSystem) Matrix() mat.Matrix { return bs.a }

// RHS returns a read-only view of the assembled right-hand side.
func (bs *BlockSystem) RHS() mat.Vector { return bs.rhs }
