package solver

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
)

// DefaultDropTol is the relative magnitude below which fill entries are
// discarded during incomplete factorization.
const DefaultDropTol = 1e-5

type entry struct {
	j int
	v float64
}

// ILU holds an incomplete LU factorization of a sparse operator: a
// unit-diagonal lower factor and an upper factor, each stored by row.  Small
// entries (relative to the row norm) are dropped during elimination, so the
// factorization is approximate and only suitable as a Krylov-iteration
// accelerant, never as a direct solve.
type ILU struct {
	n     int
	lower [][]entry // strictly below diagonal, unit diagonal implied
	upper [][]entry // diagonal and above, diagonal first
}

// NewILU factors the CSR operator a, dropping entries whose magnitude falls
// below droptol times the original row norm.  A droptol of zero keeps all
// fill (a complete LU up to the elimination ordering).
func NewILU(a *sparse.CSR, droptol float64) (*ILU, error) {
	n, ncols := a.Dims()
	if n != ncols {
		return nil, fmt.Errorf("solver: cannot factor %vx%v non-square operator", n, ncols)
	}

	ilu := &ILU{
		n:     n,
		lower: make([][]entry, n),
		upper: make([][]entry, n),
	}

	udiag := make([]float64, n)
	for i := 0; i < n; i++ {
		row := map[int]float64{}
		norm := 0.0
		a.DoRowNonZero(i, func(_, j int, v float64) {
			row[j] = v
			norm += v * v
		})
		tau := droptol * math.Sqrt(norm)

		// eliminate below-diagonal entries in ascending column order,
		// revisiting fill created along the way
		for k := 0; k < i; k++ {
			aik, ok := row[k]
			if !ok {
				continue
			}
			if udiag[k] == 0 {
				return nil, fmt.Errorf("%w: row %v", ErrZeroPivot, k)
			}
			aik /= udiag[k]
			if math.Abs(aik) < tau {
				delete(row, k)
				continue
			}
			row[k] = aik
			for _, e := range ilu.upper[k][1:] {
				row[e.j] -= aik * e.v
			}
		}

		cols := make([]int, 0, len(row))
		for j := range row {
			cols = append(cols, j)
		}
		sort.Ints(cols)

		diag, ok := row[i]
		if !ok || diag == 0 {
			return nil, fmt.Errorf("%w: row %v", ErrZeroPivot, i)
		}
		udiag[i] = diag

		ilu.upper[i] = append(ilu.upper[i], entry{j: i, v: diag})
		for _, j := range cols {
			v := row[j]
			if j == i || math.Abs(v) < tau {
				continue
			}
			if j < i {
				ilu.lower[i] = append(ilu.lower[i], entry{j: j, v: v})
			} else {
				ilu.upper[i] = append(ilu.upper[i], entry{j: j, v: v})
			}
		}
	}
	return ilu, nil
}

// Apply solves L*U*z = r by forward then backward substitution.  It
// satisfies the Preconditioner contract.
func (ilu *ILU) Apply(z, r []float64) {
	y := make([]float64, ilu.n)
	for i := 0; i < ilu.n; i++ {
		tot := 0.0
		for _, e := range ilu.lower[i] {
			tot += e.v * y[e.j]
		}
		y[i] = r[i] - tot
	}
	for i := ilu.n - 1; i >= 0; i-- {
		tot := 0.0
		for _, e := range ilu.upper[i][1:] {
			tot += e.v * z[e.j]
		}
		z[i] = (y[i] - tot) / ilu.upper[i][0].v
	}
}
