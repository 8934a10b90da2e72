// Package mesh holds the triangular mesh geometry and connectivity that the
// finite element assembly operates on.  Meshes are built once (from slices or
// from numeric table files) and are immutable afterwards, except for an
// optional one-time renumbering pass before assembly.
package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalid is wrapped by every mesh construction/validation failure.
var ErrInvalid = errors.New("mesh: invalid mesh")

// Point is a node position in the plane.
type Point struct {
	X, Y float64
}

// Mesh represents an unstructured triangulation of a closed 2D region
// together with its boundary condition node sets.  Node and element indices
// are zero-based.
type Mesh struct {
	// Nodes holds one coordinate pair per degree of freedom.
	Nodes []Point
	// Elems holds one node-index triple per triangle.  Orientation is
	// arbitrary; areas are taken as absolute values.
	Elems [][3]int
	// Dirichlet lists the nodes where the solution value is prescribed.
	Dirichlet []int
	// NeumannNodes lists the nodes lying on the flux boundary.  The edge
	// set actually used during stepping is NeumannEdges.
	NeumannNodes []int
	// NeumannEdges holds the boundary edges connecting two Neumann nodes,
	// derived from NeumannNodes and the element connectivity.  Each pair
	// is stored with the smaller index first.
	NeumannEdges [][2]int
}

// New validates the raw mesh tables and derives the Neumann edge set.  An
// edge joins two Neumann nodes iff both are vertices of a common element and
// the edge lies on the domain boundary (belongs to exactly one element).
func New(nodes []Point, elems [][3]int, dirichlet, neumann []int) (*Mesh, error) {
	m := &Mesh{
		Nodes:        nodes,
		Elems:        elems,
		Dirichlet:    dirichlet,
		NeumannNodes: neumann,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.NeumannEdges = m.neumannEdges()
	return m, nil
}

func (m *Mesh) validate() error {
	n := len(m.Nodes)
	if n == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalid)
	}
	if len(m.Elems) == 0 {
		return fmt.Errorf("%w: no elements", ErrInvalid)
	}
	for e, el := range m.Elems {
		for _, v := range el {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: element %v references node %v of %v", ErrInvalid, e, v, n)
			}
		}
		if el[0] == el[1] || el[1] == el[2] || el[0] == el[2] {
			return fmt.Errorf("%w: element %v repeats a vertex", ErrInvalid, e)
		}
	}
	for _, i := range m.Dirichlet {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: dirichlet node %v of %v", ErrInvalid, i, n)
		}
	}
	for _, i := range m.NeumannNodes {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: neumann node %v of %v", ErrInvalid, i, n)
		}
	}
	return nil
}

// neumannEdges extracts the boundary edges whose endpoints are both Neumann
// nodes.  Boundary edges are those that appear in exactly one element.
func (m *Mesh) neumannEdges() [][2]int {
	isNeumann := make(map[int]bool, len(m.NeumannNodes))
	for _, i := range m.NeumannNodes {
		isNeumann[i] = true
	}

	count := map[[2]int]int{}
	for _, el := range m.Elems {
		for _, pair := range [][2]int{{el[0], el[1]}, {el[1], el[2]}, {el[2], el[0]}} {
			count[orient(pair)]++
		}
	}

	var edges [][2]int
	for edge, c := range count {
		if c == 1 && isNeumann[edge[0]] && isNeumann[edge[1]] {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func orient(e [2]int) [2]int {
	if e[0] > e[1] {
		e[0], e[1] = e[1], e[0]
	}
	return e
}

// NumNodes returns the number of degrees of freedom.
func (m *Mesh) NumNodes() int { return len(m.Nodes) }

// ElemArea returns the (unsigned) area of element e via the shoelace
// half-determinant.
func (m *Mesh) ElemArea(e int) float64 {
	el := m.Elems[e]
	p1, p2, p3 := m.Nodes[el[0]], m.Nodes[el[1]], m.Nodes[el[2]]
	return math.Abs((p2.X-p1.X)*(p3.Y-p1.Y)-(p3.X-p1.X)*(p2.Y-p1.Y)) / 2
}

// Area returns the total mesh area.
func (m *Mesh) Area() float64 {
	tot := 0.0
	for e := range m.Elems {
		tot += m.ElemArea(e)
	}
	return tot
}

// EdgeLength returns the distance between two nodes.
func (m *Mesh) EdgeLength(a, b int) float64 {
	pa, pb := m.Nodes[a], m.Nodes[b]
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
}

// Bounds returns the bounding box of all nodes.
func (m *Mesh) Bounds() (low, up Point) {
	low = m.Nodes[0]
	up = m.Nodes[0]
	for _, p := range m.Nodes[1:] {
		low.X = math.Min(low.X, p.X)
		low.Y = math.Min(low.Y, p.Y)
		up.X = math.Max(up.X, p.X)
		up.Y = math.Max(up.Y, p.Y)
	}
	return low, up
}
