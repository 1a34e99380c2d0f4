package assembly

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/geoflux/mixdim/bc"
	"github.com/geoflux/mixdim/coupling"
	"github.com/geoflux/mixdim/grid"
	"github.com/geoflux/mixdim/mortar"
	"github.com/geoflux/mixdim/scaling"
	"github.com/geoflux/mixdim/tpfa"
)

// Subdomain is one grid of the mixed-dimensional family together with
// its flow discretization. The permeability is absolute; aperture
// scaling enters through sources and interface weights only.
type Subdomain struct {
	ID   string
	Grid *grid.Grid

	bcs *bc.FlowBC
	sys *tpfa.System
}

// NewSubdomain discretizes single-phase flow on g. A nil bcs means
// homogeneous Neumann everywhere.
func NewSubdomain(id string, g *grid.Grid, perm []float64, bcs *bc.FlowBC) (*Subdomain, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subdomain id", ErrBlockLayout)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: subdomain %q has no grid", grid.ErrInvalidTopology, id)
	}
	if bcs == nil {
		bcs = bc.NewFlowBC(g)
	}
	sys, err := tpfa.Discretize(g, perm, bcs)
	if err != nil {
		return nil, fmt.Errorf("subdomain %q: %w", id, err)
	}
	return &Subdomain{ID: id, Grid: g, bcs: bcs, sys: sys}, nil
}

// System returns the subdomain's flow discretization.
func (s *Subdomain) System() *tpfa.System { return s.sys }

// AddSource accumulates a volumetric source density scaled by the
// physical cell volumes.
func (s *Subdomain) AddSource(sv scaling.SpecificVolume, q []float64) error {
	if err := s.sys.AddSource(s.Grid, sv, q); err != nil {
		return fmt.Errorf("subdomain %q: %w", s.ID, err)
	}
	return nil
}

// FaceFlux reconstructs the integrated face fluxes of the subdomain
// from a pressure solution, with extFlux carrying interface fluxes
// gathered onto boundary faces.
func (s *Subdomain) FaceFlux(p, extFlux []float64) ([]float64, error) {
	return s.sys.FaceFlux(s.Grid, s.bcs, p, extFlux)
}

// Interface couples a subdomain to its lower-dimensional neighbor
// through a mortar grid and an interface law.
type Interface struct {
	ID        string
	Primary   *Subdomain
	Secondary *Subdomain
	Mortar    *mortar.MortarGrid
	Law       coupling.InterfaceLaw
}

// NewInterface validates the coupling references.
func NewInterface(id string, primary, secondary *Subdomain, mg *mortar.MortarGrid, law coupling.InterfaceLaw) (*Interface, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty interface id", ErrBlockLayout)
	}
	if primary == nil || secondary == nil || mg == nil || law == nil {
		return nil, fmt.Errorf("%w: interface %q is missing a subdomain, mortar grid or law",
			mortar.ErrDimensionMismatch, id)
	}
	if primary.Grid.Dim-secondary.Grid.Dim != 1 {
		return nil, fmt.Errorf("%w: interface %q couples dimensions %d and %d",
			mortar.ErrDimensionMismatch, id, primary.Grid.Dim, secondary.Grid.Dim)
	}
	if mg.NumPrimaryFaces() != primary.Grid.NumFaces || mg.NumSecondaryCells() != secondary.Grid.NumCells {
		return nil, fmt.Errorf("%w: interface %q mortar grid built against different subdomains",
			mortar.ErrDimensionMismatch, id)
	}
	return &Interface{ID: id, Primary: primary, Secondary: secondary, Mortar: mg, Law: law}, nil
}

// PrimaryFaceFlux gathers a mortar flux solution onto the primary
// subdomain's faces as integrated outward fluxes, the extFlux argument
// of FaceFlux.
func (ifc *Interface) PrimaryFaceFlux(lambda []float64) ([]float64, error) {
	if len(lambda) != ifc.Mortar.NumCells {
		return nil, fmt.Errorf("%w: %d mortar fluxes for %d mortar cells",
			coupling.ErrMissingOrInvalidParameter, len(lambda), ifc.Mortar.NumCells)
	}
	out := make([]float64, ifc.Primary.Grid.NumFaces)
	ifc.Mortar.MortarToPrimaryInt().DoNonZero(func(f, m int, v float64) {
		out[f] += v * lambda[m]
	})
	return out, nil
}

// Assembler builds the global mixed-dimensional flow system from
// subdomains and interfaces. One unknown block per subdomain (cell
// pressures) and one per interface (mortar fluxes).
type Assembler struct {
	subdomains []*Subdomain
	interfaces []*Interface
}

// NewAssembler validates that ids are unique and every interface
// endpoint is among the subdomains.
func NewAssembler(subdomains []*Subdomain, interfaces []*Interface) (*Assembler, error) {
	if len(subdomains) == 0 {
		return nil, fmt.Errorf("%w: no subdomains", ErrBlockLayout)
	}
	seen := make(map[string]bool, len(subdomains)+len(interfaces))
	for _, s := range subdomains {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrBlockLayout, s.ID)
		}
		seen[s.ID] = true
	}
	member := func(s *Subdomain) bool {
		for _, have := range subdomains {
			if have == s {
				return true
			}
		}
		return false
	}
	for _, ifc := range interfaces {
		if seen[ifc.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrBlockLayout, ifc.ID)
		}
		seen[ifc.ID] = true
		if !member(ifc.Primary) || !member(ifc.Secondary) {
			return nil, fmt.Errorf("%w: interface %q references a subdomain outside the assembly",
				ErrBlockLayout, ifc.ID)
		}
	}
	return &Assembler{subdomains: subdomains, interfaces: interfaces}, nil
}

// interfaceTerms is the fully composed contribution of one interface,
// expressed in global unknowns: subdomain cell pressures and mortar
// fluxes. Built independently per interface, accumulated only after
// every interface succeeded.
type interfaceTerms struct {
	primaryCells   *mat.Dense // cells_primary x mortar
	secondaryCells *mat.Dense // cells_secondary x mortar
	mortarPrimary  *mat.Dense // mortar x cells_primary
	mortarMortar   *mat.Dense // mortar x mortar
	mortarSecond   *mat.Dense // mortar x cells_secondary
	mortarRHS      *mat.VecDense
}

// Assemble discretizes every interface, composes the pressure-trace
// reconstruction into the coupling terms and accumulates everything
// into one block system. Interfaces are discretized concurrently; if
// any of them fails no partial system is returned.
func (a *Assembler) Assemble(ctx context.Context) (*BlockSystem, error) {
	blocks := make([]Block, 0, len(a.subdomains)+len(a.interfaces))
	for _, s := range a.subdomains {
		blocks = append(blocks, Block{ID: s.ID, Size: s.Grid.NumCells})
	}
	for _, ifc := range a.interfaces {
		blocks = append(blocks, Block{ID: ifc.ID, Size: ifc.Law.NumDof(ifc.Mortar)})
	}
	bs, err := NewBlockSystem(blocks)
	if err != nil {
		return nil, err
	}

	for _, s := range a.subdomains {
		if err := bs.Add(s.ID, s.ID, s.sys.Matrix); err != nil {
			return nil, err
		}
		if err := bs.AddRHS(s.ID, mat.NewVecDense(len(s.sys.RHS), s.sys.RHS)); err != nil {
			return nil, err
		}
	}

	terms := make([]*interfaceTerms, len(a.interfaces))
	g, ctx := errgroup.WithContext(ctx)
	for i, ifc := range a.interfaces {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := composeInterface(ifc)
			if err != nil {
				return fmt.Errorf("interface %q: %w", ifc.ID, err)
			}
			terms[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, ifc := range a.interfaces {
		t := terms[i]
		for _, step := range []error{
			bs.Add(ifc.Primary.ID, ifc.ID, t.primaryCells),
			bs.Add(ifc.Secondary.ID, ifc.ID, t.secondaryCells),
			bs.Add(ifc.ID, ifc.Primary.ID, t.mortarPrimary),
			bs.Add(ifc.ID, ifc.ID, t.mortarMortar),
			bs.Add(ifc.ID, ifc.Secondary.ID, t.mortarSecond),
			bs.AddRHS(ifc.ID, t.mortarRHS),
		} {
			if step != nil {
				return nil, step
			}
		}
	}
	return bs, nil
}

// composeInterface eliminates the primary-side trace from one
// interface contribution. The trace on an interface face is
//
//	trace = BPC*p + BPF*(boundary values + gathered mortar flux)
//
// so the mortar law rows acquire terms on the primary cell pressures
// and on the mortar flux itself, plus a constant moved to the right-
// hand side. The flux transfer rows are routed from faces into cell
// balances through the unsigned divergence.
func composeInterface(ifc *Interface) (*interfaceTerms, error) {
	c, err := ifc.Law.Discretize(ifc.Primary.Grid, ifc.Secondary.Grid, ifc.Mortar)
	if err != nil {
		return nil, err
	}
	if c.Components != 1 {
		return nil, fmt.Errorf("%w: flow assembly requires a scalar law, got %d components",
			coupling.ErrMissingOrInvalidParameter, c.Components)
	}

	sys := ifc.Primary.System()
	nl := c.Size(coupling.SpaceMortar)

	t := &interfaceTerms{mortarRHS: mat.NewVecDense(nl, nil)}

	// Flux transfer into primary cell balances: outflow through
	// interface faces, independent of stored face orientation.
	t.primaryCells = &mat.Dense{}
	t.primaryCells.Mul(ifc.Primary.Grid.AbsDivergence(), c.Blocks[coupling.SpacePrimary][coupling.SpaceMortar])

	// Source in secondary cell balances, already in cell space.
	t.secondaryCells = mat.DenseCopyOf(c.Blocks[coupling.SpaceSecondary][coupling.SpaceMortar])

	// Mortar law rows with the trace eliminated.
	b20 := c.Blocks[coupling.SpaceMortar][coupling.SpacePrimary]
	t.mortarPrimary = &mat.Dense{}
	t.mortarPrimary.Mul(b20, sys.BoundPressureCell)

	var traceFlux mat.Dense // mortar x faces: B20 * BPF
	traceFlux.Mul(b20, sys.BoundPressureFace)

	t.mortarMortar = &mat.Dense{}
	t.mortarMortar.Mul(&traceFlux, ifc.Mortar.MortarToPrimaryInt())
	t.mortarMortar.Add(t.mortarMortar, c.Blocks[coupling.SpaceMortar][coupling.SpaceMortar])

	t.mortarSecond = mat.DenseCopyOf(c.Blocks[coupling.SpaceMortar][coupling.SpaceSecondary])

	var bv mat.VecDense
	bv.MulVec(&traceFlux, mat.NewVecDense(len(sys.BoundValues), sys.BoundValues))
	t.mortarRHS.SubVec(c.RHS[coupling.SpaceMortar], &bv)

	return t, nil
}
