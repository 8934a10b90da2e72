package config

import (
	"fmt"
	"math"

	"github.com/z3r0c0d3r/predprey/fem"
)

// FuncSpec is a typed, named scalar function of position (and, for boundary
// functions, time).  Functions are selected by kind and shaped by the
// numeric fields below; no expression strings are ever evaluated.
//
// Kinds:
//
//	zero      0 (the default for an empty spec)
//	const     value
//	gaussian  amp * exp(-((x-x0)^2+(y-y0)^2)/(2*sigma^2))
//	disk      value inside radius of (x0, y0), 0 outside
//	ramp      a*x + b*y + c
//	sinesine  amp * sin(pi*x) * sin(pi*y)
//
// Boundary functions additionally decay as exp(-rate*t) when rate > 0.
type FuncSpec struct {
	Kind   string  `yaml:"kind"`
	Value  float64 `yaml:"value"`
	Amp    float64 `yaml:"amp"`
	X0     float64 `yaml:"x0"`
	Y0     float64 `yaml:"y0"`
	Sigma  float64 `yaml:"sigma"`
	Radius float64 `yaml:"radius"`
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
	C      float64 `yaml:"c"`
	Rate   float64 `yaml:"rate"`
}

func (f FuncSpec) check() error {
	switch f.Kind {
	case "", "zero", "const", "ramp", "sinesine":
	case "gaussian":
		if f.Sigma <= 0 {
			return fmt.Errorf("gaussian needs sigma > 0, got %v", f.Sigma)
		}
	case "disk":
		if f.Radius <= 0 {
			return fmt.Errorf("disk needs radius > 0, got %v", f.Radius)
		}
	default:
		return fmt.Errorf("unknown function kind %q", f.Kind)
	}
	if f.Rate < 0 {
		return fmt.Errorf("rate must be >= 0, got %v", f.Rate)
	}
	return nil
}

func (f FuncSpec) spatial() (func(x, y float64) float64, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	switch f.Kind {
	case "", "zero":
		return func(x, y float64) float64 { return 0 }, nil
	case "const":
		v := f.Value
		return func(x, y float64) float64 { return v }, nil
	case "gaussian":
		amp, x0, y0 := f.Amp, f.X0, f.Y0
		twoSigma2 := 2 * f.Sigma * f.Sigma
		return func(x, y float64) float64 {
			dx, dy := x-x0, y-y0
			return amp * math.Exp(-(dx*dx+dy*dy)/twoSigma2)
		}, nil
	case "disk":
		v, x0, y0, r2 := f.Value, f.X0, f.Y0, f.Radius*f.Radius
		return func(x, y float64) float64 {
			dx, dy := x-x0, y-y0
			if dx*dx+dy*dy <= r2 {
				return v
			}
			return 0
		}, nil
	case "ramp":
		a, b, c := f.A, f.B, f.C
		return func(x, y float64) float64 { return a*x + b*y + c }, nil
	case "sinesine":
		amp := f.Amp
		return func(x, y float64) float64 {
			return amp * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		}, nil
	}
	panic("unreachable")
}

// Initial resolves the spec as a time-independent initial condition.
func (f FuncSpec) Initial() (fem.InitialFunc, error) {
	fn, err := f.spatial()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

// Boundary resolves the spec as a boundary function of position and time.
func (f FuncSpec) Boundary() (fem.BoundaryFunc, error) {
	fn, err := f.spatial()
	if err != nil {
		return nil, err
	}
	rate := f.Rate
	if rate == 0 {
		return func(x, y, t float64) float64 { return fn(x, y) }, nil
	}
	return func(x, y, t float64) float64 {
		return fn(x, y) * math.Exp(-rate*t)
	}, nil
}
