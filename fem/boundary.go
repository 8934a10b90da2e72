package fem

// addNeumann adds the boundary-integral flux contribution for one species to
// its right-hand side.  Each boundary edge contributes the trapezoidal
// approximation of the edge integral: dt * g2 * len/2 at both endpoints,
// scaled by the inverse lumped mass like every other right-hand-side term.
func (s *System) addNeumann(rhs []float64, g BoundaryFunc, t float64) {
	for _, edge := range s.mesh.NeumannEdges {
		length := s.mesh.EdgeLength(edge[0], edge[1])
		for _, node := range edge {
			p := s.mesh.Nodes[node]
			rhs[node] += s.params.Dt * g(p.X, p.Y, t) * length / 2 / s.ops.Mass[node]
		}
	}
}

// setDirichlet overwrites the right-hand-side entries of the Dirichlet nodes
// with the prescribed boundary values.  The corresponding operator rows were
// rewritten to identity rows at assembly, so the solve reproduces these
// values exactly.  This must run after addNeumann so that flux contributions
// cannot leak into constrained entries.
func (s *System) setDirichlet(rhs []float64, g BoundaryFunc, t float64) {
	for _, node := range s.mesh.Dirichlet {
		p := s.mesh.Nodes[node]
		rhs[node] = g(p.X, p.Y, t)
	}
}
