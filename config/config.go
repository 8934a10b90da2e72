// Package config loads and validates simulation configuration from a YAML
// file: model parameters, mesh table paths, solver tuning, the named
// initial/boundary functions and the output targets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/z3r0c0d3r/predprey/fem"
)

// ErrConfig is wrapped by all configuration failures.
var ErrConfig = errors.New("config: invalid configuration")

// Config is the top-level YAML document.
type Config struct {
	Params    ParamsConfig `yaml:"params"`
	Mesh      MeshConfig   `yaml:"mesh"`
	Solver    SolverConfig `yaml:"solver"`
	Functions FuncsConfig  `yaml:"functions"`
	Output    OutputConfig `yaml:"output"`
}

// ParamsConfig mirrors fem.Params.
type ParamsConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
	Delta float64 `yaml:"delta"`
	T     float64 `yaml:"t"`
	Dt    float64 `yaml:"dt"`
}

// MeshConfig names the four numeric table files and the renumbering toggle.
type MeshConfig struct {
	Nodes     string `yaml:"nodes"`
	Elements  string `yaml:"elements"`
	Dirichlet string `yaml:"dirichlet"`
	Neumann   string `yaml:"neumann"`
	// Renumber enables reverse Cuthill-McKee node reordering.
	Renumber bool `yaml:"renumber"`
}

// SolverConfig overrides the linear solver defaults.
type SolverConfig struct {
	Restart int     `yaml:"restart"`
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`
	DropTol float64 `yaml:"drop_tol"`
}

// FuncsConfig holds the named function specs for both species.
type FuncsConfig struct {
	U0  FuncSpec `yaml:"u0"`
	V0  FuncSpec `yaml:"v0"`
	G1U FuncSpec `yaml:"g1u"`
	G1V FuncSpec `yaml:"g1v"`
	G2U FuncSpec `yaml:"g2u"`
	G2V FuncSpec `yaml:"g2v"`
}

// OutputConfig selects the run outputs.  Empty paths disable an output.
type OutputConfig struct {
	// CSV receives the final nodal fields.
	CSV string `yaml:"csv"`
	// Heatmap receives a PNG rendering of the final prey field.
	Heatmap string `yaml:"heatmap"`
	// Video receives an MJPEG animation of the prey field over time.
	Video string `yaml:"video"`
	// Chart receives a PNG plot of species totals over time.
	Chart string `yaml:"chart"`
	// Database receives per-step diagnostics (SQLite).
	Database string `yaml:"database"`
	// FrameEvery renders every n-th step into the video (default 1).
	FrameEvery int `yaml:"frame_every"`
	// Width and Height size the rendered frames.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Output.FrameEvery <= 0 {
		c.Output.FrameEvery = 1
	}
	if c.Output.Width <= 0 {
		c.Output.Width = 480
	}
	if c.Output.Height <= 0 {
		c.Output.Height = 480
	}
}

// Validate checks the parameter ranges, the mesh paths and the function
// specs.  Parameter positivity is also re-checked by fem.Params.Validate;
// failing here keeps bad configs from reaching assembly at all.
func (c *Config) Validate() error {
	if err := c.FemParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	for _, p := range []struct{ name, path string }{
		{"mesh.nodes", c.Mesh.Nodes},
		{"mesh.elements", c.Mesh.Elements},
		{"mesh.dirichlet", c.Mesh.Dirichlet},
		{"mesh.neumann", c.Mesh.Neumann},
	} {
		if p.path == "" {
			return fmt.Errorf("%w: %v path is required", ErrConfig, p.name)
		}
	}
	for _, f := range []struct {
		name string
		spec FuncSpec
	}{
		{"u0", c.Functions.U0}, {"v0", c.Functions.V0},
		{"g1u", c.Functions.G1U}, {"g1v", c.Functions.G1V},
		{"g2u", c.Functions.G2U}, {"g2v", c.Functions.G2V},
	} {
		if err := f.spec.check(); err != nil {
			return fmt.Errorf("%w: functions.%v: %v", ErrConfig, f.name, err)
		}
	}
	return nil
}

// FemParams converts the YAML parameters to fem.Params.
func (c *Config) FemParams() fem.Params {
	return fem.Params{
		Alpha: c.Params.Alpha,
		Beta:  c.Params.Beta,
		Gamma: c.Params.Gamma,
		Delta: c.Params.Delta,
		T:     c.Params.T,
		Dt:    c.Params.Dt,
	}
}

// SpeciesSpecs resolves the function specs into the two species
// descriptions.
func (c *Config) SpeciesSpecs() (u, v fem.SpeciesSpec, err error) {
	u, err = buildSpecies("prey", c.Functions.U0, c.Functions.G1U, c.Functions.G2U)
	if err != nil {
		return u, v, err
	}
	v, err = buildSpecies("predator", c.Functions.V0, c.Functions.G1V, c.Functions.G2V)
	return u, v, err
}

func buildSpecies(name string, initial, value, flux FuncSpec) (fem.SpeciesSpec, error) {
	spec := fem.SpeciesSpec{Name: name}
	var err error
	if spec.Init, err = initial.Initial(); err != nil {
		return spec, err
	}
	if spec.Dirichlet, err = value.Boundary(); err != nil {
		return spec, err
	}
	if spec.Flux, err = flux.Boundary(); err != nil {
		return spec, err
	}
	return spec, nil
}

// SolverOptions converts the solver overrides to fem.Options.
func (c *Config) SolverOptions() fem.Options {
	return fem.Options{
		Restart: c.Solver.Restart,
		MaxIter: c.Solver.MaxIter,
		Tol:     c.Solver.Tol,
		DropTol: c.Solver.DropTol,
	}
}
