// Command predprey solves a two-species reaction-diffusion predator-prey
// system on an unstructured triangular mesh with P1 finite elements and
// linearly-implicit time stepping.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/z3r0c0d3r/predprey/config"
	"github.com/z3r0c0d3r/predprey/export"
	"github.com/z3r0c0d3r/predprey/fem"
	"github.com/z3r0c0d3r/predprey/mesh"
	"github.com/z3r0c0d3r/predprey/store"
)

func main() {
	root := &cobra.Command{
		Use:           "predprey",
		Short:         "finite element predator-prey reaction-diffusion solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	run := &cobra.Command{
		Use:   "run",
		Short: "run a simulation described by a YAML config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return runSim(cfg)
		},
	}
	run.Flags().StringVarP(&cfgPath, "config", "c", "predprey.yaml", "config file path")
	root.AddCommand(run)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runSim(cfg *config.Config) error {
	m, err := mesh.Load(cfg.Mesh.Nodes, cfg.Mesh.Elements, cfg.Mesh.Dirichlet, cfg.Mesh.Neumann)
	if err != nil {
		return err
	}
	log.Printf("mesh: %v nodes, %v elements, %v dirichlet nodes, %v neumann edges",
		m.NumNodes(), len(m.Elems), len(m.Dirichlet), len(m.NeumannEdges))
	if cfg.Mesh.Renumber {
		m.Renumber()
		log.Printf("mesh: applied reverse Cuthill-McKee renumbering")
	}

	uspec, vspec, err := cfg.SpeciesSpecs()
	if err != nil {
		return err
	}
	sys, err := fem.NewSystem(m, cfg.FemParams(), uspec, vspec, cfg.SolverOptions())
	if err != nil {
		return err
	}

	var db *store.Store
	if cfg.Output.Database != "" {
		if db, err = store.Open(cfg.Output.Database); err != nil {
			return err
		}
		defer db.Close()
		if err = db.BeginRun(sys.Params()); err != nil {
			return err
		}
	}

	var video *export.Video
	var renderer *export.Renderer
	if cfg.Output.Video != "" || cfg.Output.Heatmap != "" {
		renderer = export.NewRenderer(m, cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.Video != "" {
		if video, err = export.NewVideo(cfg.Output.Video, renderer, 10); err != nil {
			return err
		}
		defer video.Close()
	}

	var times, uTotals, vTotals []float64
	var hookErr error
	sys.OnStep = func(info fem.StepInfo) {
		times = append(times, info.Time)
		uTotals = append(uTotals, info.USum)
		vTotals = append(vTotals, info.VSum)
		if db != nil && hookErr == nil {
			hookErr = db.RecordStep(info)
		}
		if video != nil && hookErr == nil && info.Step%cfg.Output.FrameEvery == 0 {
			hookErr = video.AddFrame(sys.U(), fmt.Sprintf("t=%.4f", info.Time))
		}
	}

	steps := sys.Params().Steps()
	log.Printf("stepping: %v steps of dt=%v", steps, cfg.Params.Dt)
	if err := sys.Run(); err != nil {
		log.Printf("run aborted after %v of %v steps: %v", sys.StepCount(), steps, err)
		return err
	}
	if hookErr != nil {
		return hookErr
	}

	if cfg.Output.CSV != "" {
		if err := export.WriteCSV(cfg.Output.CSV, m, sys.U(), sys.V()); err != nil {
			return err
		}
	}
	if cfg.Output.Heatmap != "" {
		label := fmt.Sprintf("t=%.4f", sys.Time())
		if err := renderer.WritePNG(cfg.Output.Heatmap, sys.U(), label); err != nil {
			return err
		}
	}
	if cfg.Output.Chart != "" && len(times) > 0 {
		if err := export.WriteTotalsChart(cfg.Output.Chart, times, uTotals, vTotals); err != nil {
			return err
		}
	}
	log.Printf("done: t=%v, %v steps", sys.Time(), sys.StepCount())
	return nil
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)
}
