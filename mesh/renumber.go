package mesh

import "sort"

// Renumber applies a reverse Cuthill-McKee reordering to the node indices so
// that the assembled operators have a smaller bandwidth, which helps both the
// incomplete factorization and the Krylov iteration.  The mesh is rewritten
// in place and the permutation is returned as mapping[old] = new.
func (m *Mesh) Renumber() []int {
	adj := m.adjacency()
	mapping := rcm(adj)

	nodes := make([]Point, len(m.Nodes))
	for old, p := range m.Nodes {
		nodes[mapping[old]] = p
	}
	m.Nodes = nodes

	for e := range m.Elems {
		for j := 0; j < 3; j++ {
			m.Elems[e][j] = mapping[m.Elems[e][j]]
		}
	}
	for i, v := range m.Dirichlet {
		m.Dirichlet[i] = mapping[v]
	}
	for i, v := range m.NeumannNodes {
		m.NeumannNodes[i] = mapping[v]
	}
	for i, e := range m.NeumannEdges {
		m.NeumannEdges[i] = orient([2]int{mapping[e[0]], mapping[e[1]]})
	}
	return mapping
}

// adjacency builds the node-node connectivity graph implied by the element
// triangles (the sparsity pattern of the stiffness operator).
func (m *Mesh) adjacency() [][]int {
	seen := make([]map[int]bool, len(m.Nodes))
	for i := range seen {
		seen[i] = map[int]bool{}
	}
	for _, el := range m.Elems {
		for _, pair := range [][2]int{{el[0], el[1]}, {el[1], el[2]}, {el[2], el[0]}} {
			seen[pair[0]][pair[1]] = true
			seen[pair[1]][pair[0]] = true
		}
	}
	adj := make([][]int, len(m.Nodes))
	for i, s := range seen {
		for j := range s {
			adj[i] = append(adj[i], j)
		}
		sort.Ints(adj[i])
	}
	return adj
}

// rcm performs a breadth-first Cuthill-McKee traversal starting from a
// minimum-degree node, visiting neighbors in increasing degree order, then
// reverses the resulting ordering.
func rcm(adj [][]int) []int {
	size := len(adj)
	byDegree := make([]int, size)
	for i := range byDegree {
		byDegree[i] = i
	}
	sort.SliceStable(byDegree, func(i, j int) bool {
		return len(adj[byDegree[i]]) < len(adj[byDegree[j]])
	})

	order := make([]int, 0, size)
	visited := make([]bool, size)
	queue := []int{}
	for len(order) < size {
		if len(queue) == 0 {
			// disconnected graph: restart from the next unvisited
			// minimum-degree node
			for _, k := range byDegree {
				if !visited[k] {
					queue = append(queue, k)
					visited[k] = true
					break
				}
			}
		}
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)

		next := []int{}
		for _, j := range adj[i] {
			if !visited[j] {
				visited[j] = true
				next = append(next, j)
			}
		}
		sort.SliceStable(next, func(a, b int) bool {
			return len(adj[next[a]]) < len(adj[next[b]])
		})
		queue = append(queue, next...)
	}

	mapping := make([]int, size)
	for seq, old := range order {
		mapping[old] = size - 1 - seq
	}
	return mapping
}
