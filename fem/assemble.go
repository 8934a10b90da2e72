// Package fem assembles the piecewise-linear finite element operators for
// the two-species reaction-diffusion system and drives its linearly-implicit
// time integration.
package fem

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/z3r0c0d3r/predprey/mesh"
)

// ErrDegenerate is wrapped when assembly meets a triangle whose area is too
// small to divide by.
var ErrDegenerate = errors.New("fem: degenerate element")

// degenerateTol scales the squared mesh diameter to decide when a triangle
// area counts as zero.
const degenerateTol = 1e-14

// Operators holds the mesh-dependent pieces of the discretization that are
// assembled once and never change during a run.
type Operators struct {
	// Mass is the lumped mass vector: one third of the incident triangle
	// area at every node.  Its sum equals the total mesh area.
	Mass []float64
	// Stiffness is the P1 discrete Laplacian.  Row sums are zero.
	Stiffness *sparse.CSR
}

// Assemble builds the lumped mass vector and the stiffness operator.  Local
// contributions are accumulated into a DOK and the CSR is constructed once
// at the end, so the sparse operator is never mutated live.
func Assemble(m *mesh.Mesh) (*Operators, error) {
	n := m.NumNodes()
	low, up := m.Bounds()
	diam2 := (up.X-low.X)*(up.X-low.X) + (up.Y-low.Y)*(up.Y-low.Y)
	if diam2 == 0 {
		diam2 = 1
	}

	mass := make([]float64, n)
	k := sparse.NewDOK(n, n)
	for e, el := range m.Elems {
		area := m.ElemArea(e)
		if area <= degenerateTol*diam2 {
			return nil, fmt.Errorf("%w: element %v area %v", ErrDegenerate, e, area)
		}

		p1 := m.Nodes[el[0]]
		p2 := m.Nodes[el[1]]
		p3 := m.Nodes[el[2]]

		// gradient coefficients of the three linear basis functions:
		// grad(phi_i) = (b_i, c_i) / (2*area)
		b := [3]float64{p2.Y - p3.Y, p3.Y - p1.Y, p1.Y - p2.Y}
		c := [3]float64{p3.X - p2.X, p1.X - p3.X, p2.X - p1.X}

		for i := 0; i < 3; i++ {
			mass[el[i]] += area / 3
			for j := 0; j < 3; j++ {
				v := (b[i]*b[j] + c[i]*c[j]) / (4 * area)
				accumulate(k, el[i], el[j], v)
			}
		}
	}
	return &Operators{Mass: mass, Stiffness: k.ToCSR()}, nil
}

func accumulate(d *sparse.DOK, i, j int, v float64) {
	if v == 0 {
		return
	}
	d.Set(i, j, d.At(i, j)+v)
}

// updateOperator builds I + coeff*dt*inv(M)*K for one species and rewrites
// every Dirichlet row into an identity row, all at the DOK stage, then
// freezes the result as a CSR.
func updateOperator(ops *Operators, dirichlet []int, dt, coeff float64) *sparse.CSR {
	n := len(ops.Mass)
	isDirichlet := make(map[int]bool, len(dirichlet))
	for _, i := range dirichlet {
		isDirichlet[i] = true
	}

	d := sparse.NewDOK(n, n)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	ops.Stiffness.DoNonZero(func(i, j int, v float64) {
		if !isDirichlet[i] {
			accumulate(d, i, j, coeff*dt*v/ops.Mass[i])
		}
	})
	return d.ToCSR()
}
