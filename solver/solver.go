// Package solver provides the sparse linear algebra used by the time
// stepper: an incomplete LU preconditioner with a drop tolerance and a
// restarted, preconditioned GMRES iteration over CSR operators.
package solver

import (
	"errors"

	"github.com/james-bowman/sparse"
)

var (
	// ErrNoConvergence is returned when an iterative solve exhausts its
	// iteration budget without reaching its residual tolerance.
	ErrNoConvergence = errors.New("solver: iteration did not converge")
	// ErrZeroPivot is returned when a factorization encounters a zero
	// diagonal pivot.
	ErrZeroPivot = errors.New("solver: zero pivot during factorization")
)

// Preconditioner applies an approximate inverse to r and stores the result
// in z.  The identity (copy) is a valid no-op preconditioner.
type Preconditioner func(z, r []float64)

// Identity is the no-op preconditioner.
func Identity(z, r []float64) { copy(z, r) }

// MulVec computes dst = A*x for a square CSR operator.
func MulVec(a *sparse.CSR, x, dst []float64) {
	rows, _ := a.Dims()
	for i := 0; i < rows; i++ {
		tot := 0.0
		a.DoRowNonZero(i, func(_, j int, v float64) {
			tot += v * x[j]
		})
		dst[i] = tot
	}
}
