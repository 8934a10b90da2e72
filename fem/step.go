package fem

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/z3r0c0d3r/predprey/solver"
)

// Step advances the system by one time step: the reaction terms are
// evaluated explicitly at the current state, diffusion is treated implicitly
// through the fixed update operators, and the two resulting linear systems
// are solved independently with the previous fields as warm starts.
func (s *System) Step() error {
	n := s.mesh.NumNodes()
	t := s.Time()
	p := s.params
	u, v := s.u.field, s.v.field

	rhsU := make([]float64, n)
	rhsV := make([]float64, n)
	for i := 0; i < n; i++ {
		// saturating functional response and reaction terms
		h := u[i] / (p.Alpha + math.Abs(u[i]))
		f := u[i] - u[i]*math.Abs(u[i]) - v[i]*h
		g := p.Beta*v[i]*h - p.Gamma*v[i]
		rhsU[i] = u[i] + p.Dt*f
		rhsV[i] = v[i] + p.Dt*g
	}

	s.addNeumann(rhsU, s.u.spec.Flux, t)
	s.addNeumann(rhsV, s.v.spec.Flux, t)
	s.setDirichlet(rhsU, s.u.spec.Dirichlet, t)
	s.setDirichlet(rhsV, s.v.spec.Dirichlet, t)

	uNew, err := s.solveSpecies(s.u, rhsU)
	if err != nil {
		return err
	}
	vNew, err := s.solveSpecies(s.v, rhsV)
	if err != nil {
		return err
	}

	s.u.field = uNew
	s.v.field = vNew
	s.step++

	if s.OnStep != nil {
		s.OnStep(s.info())
	}
	return nil
}

func (s *System) solveSpecies(sp *species, rhs []float64) ([]float64, error) {
	soln, err := sp.gmres.Solve(sp.update, rhs, sp.field)
	if errors.Is(err, solver.ErrNoConvergence) {
		return nil, &DivergenceError{
			Species:    sp.spec.Name,
			Step:       s.step + 1,
			Residual:   sp.gmres.Residual(),
			Iterations: sp.gmres.Iterations(),
		}
	}
	if err != nil {
		return nil, err
	}
	return soln, nil
}

// Run executes round(T/dt) steps.  A solver divergence aborts the loop
// immediately; the fields then still hold the state of the last completed
// step.
func (s *System) Run() error {
	for n := s.params.Steps(); s.step < n; {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) info() StepInfo {
	u, v := s.u.field, s.v.field
	return StepInfo{
		Step:   s.step,
		Time:   s.Time(),
		UIters: s.u.gmres.Iterations(),
		VIters: s.v.gmres.Iterations(),
		UMin:   floats.Min(u),
		UMax:   floats.Max(u),
		VMin:   floats.Min(v),
		VMax:   floats.Max(v),
		USum:   floats.Sum(u),
		VSum:   floats.Sum(v),
	}
}
