package mesh

import (
	"math"
)

// insideTol absorbs roundoff when testing barycentric coordinates so that
// points on shared element edges are accepted by either element.
const insideTol = 1e-12

// Locator answers point-in-element queries using a coarse uniform grid over
// the mesh bounding box.  Each grid cell lists the elements whose bounding
// boxes overlap it, so a query only tests a handful of candidate triangles.
type Locator struct {
	m      *Mesh
	nx, ny int
	low    Point
	dx, dy float64
	cells  [][]int
}

// NewLocator builds a locator with an nx-by-ny acceleration grid.
func NewLocator(m *Mesh, nx, ny int) *Locator {
	low, up := m.Bounds()
	l := &Locator{
		m:   m,
		nx:  nx,
		ny:  ny,
		low: low,
		dx:  (up.X - low.X) / float64(nx),
		dy:  (up.Y - low.Y) / float64(ny),
	}
	if l.dx == 0 {
		l.dx = 1
	}
	if l.dy == 0 {
		l.dy = 1
	}

	l.cells = make([][]int, nx*ny)
	for e, el := range m.Elems {
		exmin, exmax := math.Inf(1), math.Inf(-1)
		eymin, eymax := math.Inf(1), math.Inf(-1)
		for _, v := range el {
			p := m.Nodes[v]
			exmin = math.Min(exmin, p.X)
			exmax = math.Max(exmax, p.X)
			eymin = math.Min(eymin, p.Y)
			eymax = math.Max(eymax, p.Y)
		}
		i1, j1 := l.cell(exmin, eymin)
		i2, j2 := l.cell(exmax, eymax)
		for i := i1; i <= i2; i++ {
			for j := j1; j <= j2; j++ {
				l.cells[j*nx+i] = append(l.cells[j*nx+i], e)
			}
		}
	}
	return l
}

func (l *Locator) cell(x, y float64) (i, j int) {
	i = int((x - l.low.X) / l.dx)
	j = int((y - l.low.Y) / l.dy)
	i = clamp(i, 0, l.nx-1)
	j = clamp(j, 0, l.ny-1)
	return i, j
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Find returns the element containing (x, y), or ok=false if the point lies
// outside the mesh.
func (l *Locator) Find(x, y float64) (elem int, ok bool) {
	i, j := l.cell(x, y)
	for _, e := range l.cells[j*l.nx+i] {
		if _, inside := l.m.barycentric(e, x, y); inside {
			return e, true
		}
	}
	return 0, false
}

// Interpolate evaluates the piecewise-linear field at (x, y) by barycentric
// interpolation over the containing element.  field holds one value per node.
func (l *Locator) Interpolate(field []float64, x, y float64) (float64, bool) {
	i, j := l.cell(x, y)
	for _, e := range l.cells[j*l.nx+i] {
		lam, inside := l.m.barycentric(e, x, y)
		if !inside {
			continue
		}
		el := l.m.Elems[e]
		return lam[0]*field[el[0]] + lam[1]*field[el[1]] + lam[2]*field[el[2]], true
	}
	return 0, false
}

// barycentric computes the barycentric coordinates of (x, y) with respect to
// element e and reports whether the point lies inside the element.
func (m *Mesh) barycentric(e int, x, y float64) (lam [3]float64, inside bool) {
	el := m.Elems[e]
	p1, p2, p3 := m.Nodes[el[0]], m.Nodes[el[1]], m.Nodes[el[2]]
	det := (p2.X-p1.X)*(p3.Y-p1.Y) - (p3.X-p1.X)*(p2.Y-p1.Y)
	if det == 0 {
		return lam, false
	}
	lam[1] = ((x-p1.X)*(p3.Y-p1.Y) - (p3.X-p1.X)*(y-p1.Y)) / det
	lam[2] = ((p2.X-p1.X)*(y-p1.Y) - (x-p1.X)*(p2.Y-p1.Y)) / det
	lam[0] = 1 - lam[1] - lam[2]
	inside = lam[0] >= -insideTol && lam[1] >= -insideTol && lam[2] >= -insideTol
	return lam, inside
}
