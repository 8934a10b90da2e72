package solver

import (
	"bytes"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

// GMRES implements a restarted, left-preconditioned GMRES iteration (see
// Saad, Iterative Methods for Sparse Linear Systems, ch. 6).
type GMRES struct {
	// MaxIter caps the total number of Krylov iterations across all
	// restart cycles.  Zero means 4 times the system size, at least 200.
	MaxIter int
	// Restart is the Krylov subspace dimension per cycle.  Zero means 30.
	Restart int
	// Tol is the relative residual tolerance.
	Tol float64
	// Precon is applied to every residual.  Nil means no preconditioning.
	Precon Preconditioner

	niter int
	resid float64
}

// Status describes the last Solve call in the same spirit as the other
// solvers' diagnostics.
func (g *GMRES) Status() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "GMRES Solver Stats:\n")
	fmt.Fprintf(&buf, "    %v iterations\n", g.niter)
	fmt.Fprintf(&buf, "    relative residual %.3e", g.resid)
	return buf.String()
}

// Iterations returns the Krylov iteration count of the last Solve call.
func (g *GMRES) Iterations() int { return g.niter }

// Residual returns the final relative residual of the last Solve call.
func (g *GMRES) Residual() float64 { return g.resid }

// Solve solves A*x = b starting from the initial guess x0 (a warm start; nil
// means the zero vector).  On convergence failure the best iterate found so
// far is returned along with ErrNoConvergence.
func (g *GMRES) Solve(a *sparse.CSR, b, x0 []float64) ([]float64, error) {
	n := len(b)
	restart := g.Restart
	if restart <= 0 {
		restart = 30
	}
	if restart > n {
		restart = n
	}
	maxiter := g.MaxIter
	if maxiter <= 0 {
		maxiter = 4 * n
		if maxiter < 200 {
			maxiter = 200
		}
	}
	precon := g.Precon
	if precon == nil {
		precon = Identity
	}

	x := make([]float64, n)
	if x0 != nil {
		copy(x, x0)
	}

	z := make([]float64, n)
	precon(z, b)
	bnorm := floats.Norm(z, 2)
	if bnorm == 0 {
		bnorm = 1
	}

	r := make([]float64, n)
	w := make([]float64, n)
	v := make([][]float64, restart+1)
	h := make([][]float64, restart+1)
	for i := range h {
		h[i] = make([]float64, restart)
	}
	cs := make([]float64, restart)
	sn := make([]float64, restart)
	gv := make([]float64, restart+1)

	g.niter = 0
	for {
		// preconditioned residual of the current iterate
		MulVec(a, x, r)
		floats.SubTo(r, b, r)
		precon(z, r)
		beta := floats.Norm(z, 2)
		g.resid = beta / bnorm
		if g.resid < g.Tol {
			return x, nil
		}
		if g.niter >= maxiter {
			return x, fmt.Errorf("%w: %v iterations, residual %.3e", ErrNoConvergence, g.niter, g.resid)
		}

		v[0] = make([]float64, n)
		floats.ScaleTo(v[0], 1/beta, z)
		for i := range gv {
			gv[i] = 0
		}
		gv[0] = beta

		j := 0
		for ; j < restart && g.niter < maxiter; j++ {
			g.niter++

			// Arnoldi step with modified Gram-Schmidt
			MulVec(a, v[j], r)
			precon(w, r)
			for i := 0; i <= j; i++ {
				h[i][j] = floats.Dot(w, v[i])
				floats.AddScaled(w, -h[i][j], v[i])
			}
			h[j+1][j] = floats.Norm(w, 2)
			breakdown := h[j+1][j] < 1e-14*beta
			if !breakdown {
				v[j+1] = make([]float64, n)
				floats.ScaleTo(v[j+1], 1/h[j+1][j], w)
			}

			// previous Givens rotations applied to the new column
			for i := 0; i < j; i++ {
				h[i][j], h[i+1][j] = cs[i]*h[i][j]+sn[i]*h[i+1][j],
					-sn[i]*h[i][j]+cs[i]*h[i+1][j]
			}
			cs[j], sn[j] = givens(h[j][j], h[j+1][j])
			h[j][j] = cs[j]*h[j][j] + sn[j]*h[j+1][j]
			h[j+1][j] = 0
			gv[j], gv[j+1] = cs[j]*gv[j], -sn[j]*gv[j]

			g.resid = math.Abs(gv[j+1]) / bnorm
			if g.resid < g.Tol || breakdown {
				j++
				break
			}
		}

		// back-substitute the small triangular system and update x.  A zero
		// diagonal means the operator is singular on this Krylov subspace;
		// dropping that component keeps the iterate finite.
		y := make([]float64, j)
		for i := j - 1; i >= 0; i-- {
			if h[i][i] == 0 {
				continue
			}
			tot := gv[i]
			for k := i + 1; k < j; k++ {
				tot -= h[i][k] * y[k]
			}
			y[i] = tot / h[i][i]
		}
		for i := 0; i < j; i++ {
			floats.AddScaled(x, y[i], v[i])
		}
	}
}

// givens returns the rotation (c, s) that zeroes b against a.
func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if math.Abs(b) > math.Abs(a) {
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		return s * t, s
	}
	t := b / a
	c = 1 / math.Sqrt(1+t*t)
	return c, c * t
}
