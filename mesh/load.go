package mesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load reads a mesh from four whitespace-separated numeric tables: node
// coordinates (x y per row), element connectivity (three node numbers per
// row), and the Dirichlet and Neumann boundary node lists (one node number
// per row).  Node numbers on disk are 1-based, following the usual mesh-file
// convention; they are converted to 0-based indices here.
func Load(nodesPath, elemsPath, dirichletPath, neumannPath string) (*Mesh, error) {
	coords, err := readTable(nodesPath, 2)
	if err != nil {
		return nil, err
	}
	nodes := make([]Point, len(coords))
	for i, row := range coords {
		nodes[i] = Point{X: row[0], Y: row[1]}
	}

	conn, err := readTable(elemsPath, 3)
	if err != nil {
		return nil, err
	}
	elems := make([][3]int, len(conn))
	for i, row := range conn {
		for j := 0; j < 3; j++ {
			v, err := toIndex(row[j], len(nodes))
			if err != nil {
				return nil, fmt.Errorf("%v row %v: %w", elemsPath, i+1, err)
			}
			elems[i][j] = v
		}
	}

	dirichlet, err := readNodeList(dirichletPath, len(nodes))
	if err != nil {
		return nil, err
	}
	neumann, err := readNodeList(neumannPath, len(nodes))
	if err != nil {
		return nil, err
	}

	return New(nodes, elems, dirichlet, neumann)
}

func readNodeList(path string, nnodes int) ([]int, error) {
	rows, err := readTable(path, 1)
	if err != nil {
		return nil, err
	}
	list := make([]int, len(rows))
	for i, row := range rows {
		v, err := toIndex(row[0], nnodes)
		if err != nil {
			return nil, fmt.Errorf("%v row %v: %w", path, i+1, err)
		}
		list[i] = v
	}
	return list, nil
}

// toIndex converts a 1-based node number from a mesh file to a 0-based index.
func toIndex(v float64, nnodes int) (int, error) {
	i := int(v)
	if float64(i) != v || i < 1 || i > nnodes {
		return 0, fmt.Errorf("%w: node number %v (have %v nodes)", ErrInvalid, v, nnodes)
	}
	return i - 1, nil
}

// readTable parses a whitespace-separated numeric table with ncols columns
// per row.  Blank lines and lines starting with '#' are skipped.
func readTable(path string, ncols int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]float64
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != ncols {
			return nil, fmt.Errorf("%w: %v:%v: want %v columns, got %v", ErrInvalid, path, lineno, ncols, len(fields))
		}
		row := make([]float64, ncols)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v:%v: %v", ErrInvalid, path, lineno, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
