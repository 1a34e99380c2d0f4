// Package coupling discretizes Robin-type interface laws transmitting
// flux (flow) or traction (mechanics) between a subdomain and its
// lower-dimensional neighbor across a mortar grid.
package coupling

import (
	"gonum.org/v1/gonum/mat"

	"github.com/james-bowman/sparse"
)

// Space indexes the three unknown blocks of a local interface
// contribution.
type Space int

const (
	// SpacePrimary is the trace/flux space on primary-side faces.
	SpacePrimary Space = iota
	// SpaceSecondary is the secondary-side cell space.
	SpaceSecondary
	// SpaceMortar is the mortar flux space.
	SpaceMortar
)

// Contribution is the local system produced by one interface
// discretization, a square operator over the combined (trace,
// secondary, mortar) unknown space plus right-hand sides. Row blocks:
//
//	SpacePrimary:   flux transfer onto primary faces; the assembler
//	                routes it into primary cell balances through the
//	                unsigned divergence.
//	SpaceSecondary: source terms in secondary cell balances.
//	SpaceMortar:    the interface law itself.
//
// A nil block is identically zero. A Contribution is fully built
// before it is handed out; a failed discretization produces none, so
// partial coupling terms can never reach an assembly target.
type Contribution struct {
	// Components per geometric entity: 1 for scalar laws, the vector
	// length for mechanics laws.
	Components int

	Blocks [3][3]*mat.Dense
	RHS    [3]*mat.VecDense

	sizes [3]int
}

func newContribution(nPrimary, nSecondary, nMortar, components int) *Contribution {
	c := &Contribution{
		Components: components,
		sizes:      [3]int{nPrimary * components, nSecondary * components, nMortar * components},
	}
	for s := range c.RHS {
		c.RHS[s] = mat.NewVecDense(c.sizes[s], nil)
	}
	return c
}

// Size returns the number of scalar unknowns in block s.
func (c *Contribution) Size(s Space) int { return c.sizes[s] }

func (c *Contribution) block(row, col Space) *mat.Dense {
	if c.Blocks[row][col] == nil {
		c.Blocks[row][col] = mat.NewDense(c.sizes[row], c.sizes[col], nil)
	}
	return c.Blocks[row][col]
}

// addScaledCSR accumulates scale * diag(rowWeight) * p into dst, where
// nil rowWeight means unit weights. Each sparse entry is expanded over
// the law's components.
func (c *Contribution) addScaledCSR(row, col Space, p *sparse.CSR, rowWeight []float64, scale float64) {
	dst := c.block(row, col)
	comps := c.Components
	p.DoNonZero(func(i, j int, v float64) {
		w := scale * v
		if rowWeight != nil {
			w *= rowWeight[i]
		}
		for k := 0; k < comps; k++ {
			dst.Set(i*comps+k, j*comps+k, dst.At(i*comps+k, j*comps+k)+w)
		}
	})
}

// addIdentity accumulates scale * I onto the (s, s) block.
func (c *Contribution) addIdentity(s Space, scale float64) {
	dst := c.block(s, s)
	for i := 0; i < c.sizes[s]; i++ {
		dst.Set(i, i, dst.At(i, i)+scale)
	}
}
