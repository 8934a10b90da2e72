// Package export renders and writes simulation results: final fields as
// CSV, heatmap PNGs and MJPEG animations of the nodal fields, and a summary
// chart of species totals over time.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/z3r0c0d3r/predprey/mesh"
)

// WriteCSV writes one row per node: x, y, u, v.
func WriteCSV(path string, m *mesh.Mesh, u, v []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "u", "v"}); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for i, p := range m.Nodes {
		row := []string{
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
			strconv.FormatFloat(u[i], 'g', -1, 64),
			strconv.FormatFloat(v[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTotalsChart plots the species totals against time as a PNG.
func WriteTotalsChart(path string, times, uTotals, vTotals []float64) error {
	graph := chart.Chart{
		XAxis: chart.XAxis{Name: "time"},
		YAxis: chart.YAxis{Name: "total"},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "prey", XValues: times, YValues: uTotals},
			chart.ContinuousSeries{Name: "predator", XValues: times, YValues: vTotals},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("export: render chart: %w", err)
	}
	return nil
}
