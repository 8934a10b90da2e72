package fem

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/z3r0c0d3r/predprey/mesh"
	"github.com/z3r0c0d3r/predprey/solver"
)

// ErrBadParam is wrapped by parameter validation failures.
var ErrBadParam = errors.New("fem: invalid parameter")

// Params holds the model and integration parameters.  All of them must be
// strictly positive.
type Params struct {
	// Alpha is the half-saturation constant of the functional response.
	Alpha float64
	// Beta is the predator conversion efficiency.
	Beta float64
	// Gamma is the predator death rate.
	Gamma float64
	// Delta is the predator/prey diffusion ratio.
	Delta float64
	// T is the final simulation time.
	T float64
	// Dt is the time step.
	Dt float64
}

// Validate rejects non-positive parameters before any assembly happens.
func (p Params) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"alpha", p.Alpha},
		{"beta", p.Beta},
		{"gamma", p.Gamma},
		{"delta", p.Delta},
		{"T", p.T},
		{"dt", p.Dt},
	} {
		if v.val <= 0 || math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %v = %v (must be > 0)", ErrBadParam, v.name, v.val)
		}
	}
	return nil
}

// Steps returns the number of time steps, round(T/dt).
func (p Params) Steps() int { return int(math.Round(p.T / p.Dt)) }

// InitialFunc evaluates an initial condition at a node position.
type InitialFunc func(x, y float64) float64

// BoundaryFunc evaluates a boundary value or flux at a position and time.
type BoundaryFunc func(x, y, t float64) float64

// SpeciesSpec describes one species' boundary data and initial condition.
// Nil functions mean zero.
type SpeciesSpec struct {
	Name string
	// Init is the initial condition u0(x, y).
	Init InitialFunc
	// Dirichlet is the prescribed boundary value g1(x, y, t).
	Dirichlet BoundaryFunc
	// Flux is the Neumann boundary flux g2(x, y, t).
	Flux BoundaryFunc
}

func (s SpeciesSpec) withDefaults(name string) SpeciesSpec {
	if s.Name == "" {
		s.Name = name
	}
	if s.Init == nil {
		s.Init = func(x, y float64) float64 { return 0 }
	}
	if s.Dirichlet == nil {
		s.Dirichlet = func(x, y, t float64) float64 { return 0 }
	}
	if s.Flux == nil {
		s.Flux = func(x, y, t float64) float64 { return 0 }
	}
	return s
}

// Options tunes the linear solver pairing.  The zero value selects the
// defaults (restart 30, tolerance 1e-6, drop tolerance 1e-5).
type Options struct {
	Restart int
	MaxIter int
	Tol     float64
	DropTol float64
}

func (o Options) withDefaults() Options {
	if o.Tol == 0 {
		o.Tol = 1e-6
	}
	if o.DropTol == 0 {
		o.DropTol = solver.DefaultDropTol
	}
	return o
}

// species is one instance of the assemble+precondition+solve pipeline.  The
// prey and predator share identical structure and differ only in diffusion
// coefficient, reaction terms and boundary data.
type species struct {
	spec   SpeciesSpec
	update *sparse.CSR
	gmres  *solver.GMRES
	field  []float64
}

// DivergenceError reports a Krylov solve that failed to reach its tolerance.
// It is fatal: the time loop halts and the fields of the last completed step
// are preserved.
type DivergenceError struct {
	Species    string
	Step       int
	Residual   float64
	Iterations int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("fem: %v solve diverged at step %v: residual %.3e after %v iterations",
		e.Species, e.Step, e.Residual, e.Iterations)
}

// StepInfo summarizes one completed time step for observers.
type StepInfo struct {
	Step       int
	Time       float64
	UIters     int
	VIters     int
	UMin, UMax float64
	VMin, VMax float64
	USum, VSum float64
}

// System couples the assembled operators, the two per-species solver
// pipelines and the field state.  Construct it with NewSystem, then call Run
// (or Step repeatedly).
type System struct {
	// OnStep, if set, is invoked after every completed step.
	OnStep func(StepInfo)

	mesh   *mesh.Mesh
	params Params
	ops    *Operators
	u, v   *species
	step   int
}

// NewSystem validates the parameters, assembles mass and stiffness, builds
// the two Dirichlet-corrected update operators and factors their
// preconditioners.  Everything built here is fixed for the whole run; only
// right-hand sides change per step.
func NewSystem(m *mesh.Mesh, p Params, uspec, vspec SpeciesSpec, opts Options) (*System, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	ops, err := Assemble(m)
	if err != nil {
		return nil, err
	}

	s := &System{mesh: m, params: p, ops: ops}
	s.u, err = newSpecies(m, ops, p.Dt, 1, uspec.withDefaults("prey"), opts)
	if err != nil {
		return nil, err
	}
	s.v, err = newSpecies(m, ops, p.Dt, p.Delta, vspec.withDefaults("predator"), opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSpecies(m *mesh.Mesh, ops *Operators, dt, diffusion float64, spec SpeciesSpec, opts Options) (*species, error) {
	update := updateOperator(ops, m.Dirichlet, dt, diffusion)
	ilu, err := solver.NewILU(update, opts.DropTol)
	if err != nil {
		return nil, fmt.Errorf("fem: preconditioning %v operator: %w", spec.Name, err)
	}

	field := make([]float64, m.NumNodes())
	for i, pt := range m.Nodes {
		field[i] = spec.Init(pt.X, pt.Y)
	}

	return &species{
		spec:   spec,
		update: update,
		field:  field,
		gmres: &solver.GMRES{
			Restart: opts.Restart,
			MaxIter: opts.MaxIter,
			Tol:     opts.Tol,
			Precon:  ilu.Apply,
		},
	}, nil
}

// U returns the current prey field (one value per node).
func (s *System) U() []float64 { return s.u.field }

// V returns the current predator field.
func (s *System) V() []float64 { return s.v.field }

// Mesh returns the mesh the system was assembled on.
func (s *System) Mesh() *mesh.Mesh { return s.mesh }

// Params returns the model parameters.
func (s *System) Params() Params { return s.params }

// Time returns the current simulation time, step*dt.
func (s *System) Time() float64 { return float64(s.step) * s.params.Dt }

// StepCount returns the number of completed steps.
func (s *System) StepCount() int { return s.step }
