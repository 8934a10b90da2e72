package fem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/z3r0c0d3r/predprey/mesh"
)

func mustMesh(t *testing.T, nodes []mesh.Point, elems [][3]int, dirichlet, neumann []int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.New(nodes, elems, dirichlet, neumann)
	require.NoError(t, err)
	return m
}

// unitSquare is the two-triangle unit square with nodes at the corners.
func unitSquare(t *testing.T, dirichlet, neumann []int) *mesh.Mesh {
	return mustMesh(t,
		[]mesh.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		[][3]int{{0, 1, 2}, {0, 2, 3}},
		dirichlet, neumann)
}

func grid(t *testing.T, n int) *mesh.Mesh {
	var nodes []mesh.Point
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			nodes = append(nodes, mesh.Point{X: float64(i) / float64(n), Y: float64(j) / float64(n)})
		}
	}
	var elems [][3]int
	id := func(i, j int) int { return j*(n+1) + i }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			elems = append(elems,
				[3]int{id(i, j), id(i+1, j), id(i+1, j+1)},
				[3]int{id(i, j), id(i+1, j+1), id(i, j+1)})
		}
	}
	return mustMesh(t, nodes, elems, nil, nil)
}

func TestAssembleUnitTriangle(t *testing.T) {
	m := mustMesh(t,
		[]mesh.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
		[][3]int{{0, 1, 2}}, nil, nil)
	ops, err := Assemble(m)
	require.NoError(t, err)

	// area 1/2, lumped mass area/3 per vertex
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0/6, ops.Mass[i], 1e-15)
	}

	want := [][]float64{
		{1, -0.5, -0.5},
		{-0.5, 0.5, 0},
		{-0.5, 0, 0.5},
	}
	t.Logf("K=\n%v", mat.Formatted(ops.Stiffness.ToDense()))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], ops.Stiffness.At(i, j), 1e-14, "K[%v,%v]", i, j)
		}
	}
}

func TestAssembleMassConservation(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		m := grid(t, n)
		ops, err := Assemble(m)
		require.NoError(t, err)
		assert.InDelta(t, m.Area(), floats.Sum(ops.Mass), 1e-12, "n=%v", n)
		for i, v := range ops.Mass {
			assert.Greater(t, v, 0.0, "mass[%v]", i)
		}
	}
}

func TestAssembleStiffnessRowSums(t *testing.T) {
	// constant fields see zero diffusive flux: every row sums to zero
	m := grid(t, 4)
	ops, err := Assemble(m)
	require.NoError(t, err)
	rows, _ := ops.Stiffness.Dims()
	for i := 0; i < rows; i++ {
		tot := 0.0
		ops.Stiffness.DoRowNonZero(i, func(_, _ int, v float64) { tot += v })
		assert.InDelta(t, 0, tot, 1e-12, "row %v", i)
	}
}

func TestAssembleStiffnessSymmetry(t *testing.T) {
	m := grid(t, 3)
	ops, err := Assemble(m)
	require.NoError(t, err)
	n, _ := ops.Stiffness.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			assert.InDelta(t, ops.Stiffness.At(i, j), ops.Stiffness.At(j, i), 1e-13)
		}
	}
}

func TestAssembleDegenerate(t *testing.T) {
	m := mustMesh(t,
		[]mesh.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
		[][3]int{{0, 1, 2}}, nil, nil)
	_, err := Assemble(m)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestParamsValidate(t *testing.T) {
	good := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	assert.NoError(t, good.Validate())
	assert.Equal(t, 10, good.Steps())

	for _, tamper := range []func(*Params){
		func(p *Params) { p.Alpha = 0 },
		func(p *Params) { p.Beta = -1 },
		func(p *Params) { p.Gamma = 0 },
		func(p *Params) { p.Delta = -0.5 },
		func(p *Params) { p.T = 0 },
		func(p *Params) { p.Dt = -0.01 },
	} {
		p := good
		tamper(&p)
		assert.ErrorIs(t, p.Validate(), ErrBadParam)
	}
}

func TestDirichletRowsAreIdentity(t *testing.T) {
	m := unitSquare(t, []int{0, 2}, nil)
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 2, T: 0.1, Dt: 0.01}
	s, err := NewSystem(m, p, SpeciesSpec{}, SpeciesSpec{}, Options{})
	require.NoError(t, err)

	for _, sp := range []*species{s.u, s.v} {
		for _, row := range m.Dirichlet {
			for j := 0; j < m.NumNodes(); j++ {
				want := 0.0
				if j == row {
					want = 1.0
				}
				assert.Equal(t, want, sp.update.At(row, j),
					"%v row %v col %v", sp.spec.Name, row, j)
			}
		}
	}
}

func TestUpdateOperatorOffDirichletRows(t *testing.T) {
	// non-Dirichlet rows carry I + dt*K/m for u and I + delta*dt*K/m for v
	m := unitSquare(t, []int{0}, nil)
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 2, T: 0.1, Dt: 0.01}
	s, err := NewSystem(m, p, SpeciesSpec{}, SpeciesSpec{}, Options{})
	require.NoError(t, err)

	ops, err := Assemble(m)
	require.NoError(t, err)
	for i := 1; i < m.NumNodes(); i++ {
		for j := 0; j < m.NumNodes(); j++ {
			ident := 0.0
			if i == j {
				ident = 1.0
			}
			ku := ident + p.Dt*ops.Stiffness.At(i, j)/ops.Mass[i]
			kv := ident + p.Delta*p.Dt*ops.Stiffness.At(i, j)/ops.Mass[i]
			assert.InDelta(t, ku, s.u.update.At(i, j), 1e-13)
			assert.InDelta(t, kv, s.v.update.At(i, j), 1e-13)
		}
	}
}

func TestZeroStepsLeavesFields(t *testing.T) {
	m := unitSquare(t, nil, nil)
	// round(T/dt) = round(0.4) = 0 steps
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.004, Dt: 0.01}
	init := func(x, y float64) float64 { return 1 + x + 2*y }
	s, err := NewSystem(m, p, SpeciesSpec{Init: init}, SpeciesSpec{Init: init}, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, p.Steps())

	require.NoError(t, s.Run())
	assert.Equal(t, 0, s.StepCount())
	for i, pt := range m.Nodes {
		assert.Equal(t, 1+pt.X+2*pt.Y, s.U()[i])
		assert.Equal(t, 1+pt.X+2*pt.Y, s.V()[i])
	}
}

func TestZeroFixedPoint(t *testing.T) {
	// zero fields with zero Dirichlet boundary everywhere are a fixed
	// point of the reaction and of the update: both species stay exactly
	// zero through all 10 steps
	m := unitSquare(t, []int{0, 1, 2, 3}, nil)
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	s, err := NewSystem(m, p, SpeciesSpec{}, SpeciesSpec{}, Options{})
	require.NoError(t, err)

	steps := 0
	s.OnStep = func(info StepInfo) {
		steps++
		assert.Equal(t, 0.0, info.UMin)
		assert.Equal(t, 0.0, info.UMax)
		assert.Equal(t, 0.0, info.VMin)
		assert.Equal(t, 0.0, info.VMax)
	}
	require.NoError(t, s.Run())
	assert.Equal(t, 10, steps)
	assert.Equal(t, 10, s.StepCount())
	for i := range s.U() {
		assert.Equal(t, 0.0, s.U()[i])
		assert.Equal(t, 0.0, s.V()[i])
	}
}

func TestNeumannInjection(t *testing.T) {
	// constant flux c on the single Neumann edge (0,1) of length 1 adds
	// dt*c*len/2/m at each endpoint and nothing anywhere else
	const c = 3.0
	m := unitSquare(t, nil, []int{0, 1})
	require.Equal(t, [][2]int{{0, 1}}, m.NeumannEdges)

	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	flux := func(x, y, t float64) float64 { return c }
	s, err := NewSystem(m, p, SpeciesSpec{Flux: flux}, SpeciesSpec{}, Options{})
	require.NoError(t, err)

	rhs := make([]float64, m.NumNodes())
	s.addNeumann(rhs, s.u.spec.Flux, 0)

	length := m.EdgeLength(0, 1)
	assert.InDelta(t, p.Dt*c*length/2/s.ops.Mass[0], rhs[0], 1e-15)
	assert.InDelta(t, p.Dt*c*length/2/s.ops.Mass[1], rhs[1], 1e-15)
	assert.Equal(t, 0.0, rhs[2])
	assert.Equal(t, 0.0, rhs[3])
}

func TestDirichletInjectionAfterNeumann(t *testing.T) {
	// a Dirichlet node that also sits on a Neumann edge must end up with
	// exactly the prescribed value, not value plus flux
	m := unitSquare(t, []int{0}, []int{0, 1})
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	s, err := NewSystem(m, p,
		SpeciesSpec{
			Flux:      func(x, y, t float64) float64 { return 5 },
			Dirichlet: func(x, y, t float64) float64 { return 7 },
		},
		SpeciesSpec{}, Options{})
	require.NoError(t, err)

	rhs := make([]float64, m.NumNodes())
	s.addNeumann(rhs, s.u.spec.Flux, 0)
	s.setDirichlet(rhs, s.u.spec.Dirichlet, 0)
	assert.Equal(t, 7.0, rhs[0])
}

func TestDirichletValuesHeld(t *testing.T) {
	// after stepping, Dirichlet nodes hold g1 exactly (identity rows +
	// rhs injection)
	m := grid(t, 2)
	boundary := []int{}
	for i, pt := range m.Nodes {
		if pt.X == 0 || pt.X == 1 || pt.Y == 0 || pt.Y == 1 {
			boundary = append(boundary, i)
		}
	}
	m.Dirichlet = boundary

	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.05, Dt: 0.01}
	g1 := func(x, y, t float64) float64 { return 2 }
	s, err := NewSystem(m, p,
		SpeciesSpec{Dirichlet: g1},
		SpeciesSpec{Dirichlet: g1}, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	for _, i := range boundary {
		assert.InDelta(t, 2.0, s.U()[i], 1e-6)
		assert.InDelta(t, 2.0, s.V()[i], 1e-6)
	}
}

func TestSolverDivergenceFatal(t *testing.T) {
	// an absurdly tight tolerance with a one-iteration budget cannot
	// converge; the step must fail with a DivergenceError naming the
	// species and leave the fields at their pre-step values
	m := grid(t, 3)
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	init := func(x, y float64) float64 { return x }
	s, err := NewSystem(m, p, SpeciesSpec{Init: init}, SpeciesSpec{}, Options{MaxIter: 1, Tol: 1e-30})
	require.NoError(t, err)

	before := append([]float64(nil), s.U()...)
	err = s.Run()
	require.Error(t, err)

	var derr *DivergenceError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "prey", derr.Species)
	assert.Equal(t, 1, derr.Step)
	assert.Greater(t, derr.Residual, 0.0)
	assert.Equal(t, 0, s.StepCount())
	assert.Equal(t, before, s.U())
}

func TestReactionOnlyDynamics(t *testing.T) {
	// with v=0, spatially constant u and pure Neumann boundary (zero
	// flux), one step applies the logistic update u + dt*(u - u^2)
	// exactly: diffusion vanishes on constant fields
	m := unitSquare(t, nil, nil)
	p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.01, Dt: 0.01}
	u0 := 0.25
	s, err := NewSystem(m, p,
		SpeciesSpec{Init: func(x, y float64) float64 { return u0 }},
		SpeciesSpec{}, Options{Tol: 1e-12})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	want := u0 + p.Dt*(u0-u0*u0)
	for i := range s.U() {
		assert.InDelta(t, want, s.U()[i], 1e-9)
		assert.Equal(t, 0.0, s.V()[i])
	}
}

func TestRunMatchesManualSteps(t *testing.T) {
	build := func() *System {
		m := unitSquare(t, []int{0}, nil)
		p := Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 0.5, T: 0.03, Dt: 0.01}
		s, err := NewSystem(m, p,
			SpeciesSpec{Init: func(x, y float64) float64 { return x * y }},
			SpeciesSpec{Init: func(x, y float64) float64 { return 0.1 }},
			Options{})
		require.NoError(t, err)
		return s
	}

	a := build()
	require.NoError(t, a.Run())

	b := build()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Step())
	}

	assert.Equal(t, a.StepCount(), b.StepCount())
	for i := range a.U() {
		assert.InDelta(t, a.U()[i], b.U()[i], 1e-12)
		assert.InDelta(t, a.V()[i], b.V()[i], 1e-12)
	}
}
