// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"gopkg.in/yaml.v3"
)

// DiscreteData holds the B-spline discretization parameters
type DiscreteData struct {
	Nspans []int `yaml:"nspans"` // number of knot spans per axis
	Degree []int `yaml:"degree"` // polynomial degree per axis
	BcMin  []int `yaml:"bcmin"`  // boundary flag @ min side per axis: 0 => homogeneous Dirichlet, 1 => natural
	BcMax  []int `yaml:"bcmax"`  // boundary flag @ max side per axis
	Extra  int   `yaml:"extra"`  // extra quadrature points per axis on top of degree+1
}

// MappingData holds the geometry data
type MappingData struct {
	Kind string    `yaml:"kind"` // "box"
	Min  []float64 `yaml:"min"`  // lower corner of box
	Max  []float64 `yaml:"max"`  // upper corner of box
}

// ProblemData names the forms of the linear system
type ProblemData struct {
	Matrix string `yaml:"matrix"` // bilinear form name
	Rhs    string `yaml:"rhs"`    // linear form name
}

// LinSolData holds data for linear solvers
type LinSolData struct {
	Name    string  `yaml:"name"`    // "gmres" or "umfpack"
	Tol     float64 `yaml:"tol"`     // relative tolerance of iterative solvers
	MaxIt   int     `yaml:"maxit"`   // max number of iterations
	Restart int     `yaml:"restart"` // GMRES restart length
	Verbose bool    `yaml:"verbose"` // show residuals
}

// FieldData tells how a block of the solution is stored and post-processed
type FieldData struct {
	Name      string `yaml:"name"`      // field name in the model
	Block     int    `yaml:"block"`     // block of the solution vector
	Reference string `yaml:"reference"` // analytic solution for the L2 error; empty => skip
	Vtk       string `yaml:"vtk"`       // output file; empty => skip
	Npts      int    `yaml:"npts"`      // number of VTK sample points per axis
}

// Config holds all data required to run the pipeline from a source file
type Config struct {
	Source    string             `yaml:"source"`   // path to the .vl file; relative to the config file
	Workdir   string             `yaml:"workdir"`  // scratch directory for discretization artifacts
	Nworkers  int                `yaml:"nworkers"` // number of assembly workers; 0 => number of CPUs
	Discrete  DiscreteData       `yaml:"discretization"`
	Mapping   MappingData        `yaml:"mapping"`
	Functions map[string]string  `yaml:"functions"` // expressions of coefficient functions
	Constants map[string]float64 `yaml:"constants"` // values of constants
	Problem   ProblemData        `yaml:"problem"`
	LinSol    LinSolData         `yaml:"solver"`
	Fields    []FieldData        `yaml:"fields"`
	Refine    []int              `yaml:"refine"` // spans per axis for convergence studies

	// derived
	Dir string `yaml:"-"` // directory of the config file
}

// ReadConfig reads a YAML run configuration
func ReadConfig(path string) (o *Config, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, chk.Err("cannot read config file %q:\n%v", path, err)
	}
	o = new(Config)
	err = yaml.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot parse config file %q:\n%v", path, err)
	}
	o.Dir = filepath.Dir(path)
	if o.Source != "" && !filepath.IsAbs(o.Source) {
		o.Source = filepath.Join(o.Dir, o.Source)
	}
	o.SetDefault()
	err = o.Validate()
	return
}

// SetDefault sets default values
func (o *Config) SetDefault() {
	if o.Workdir == "" {
		o.Workdir = "input"
	}
	if o.Mapping.Kind == "" {
		o.Mapping.Kind = "box"
	}
	if o.LinSol.Name == "" {
		o.LinSol.Name = "gmres"
	}
	if o.LinSol.Tol == 0 {
		o.LinSol.Tol = 1e-10
	}
	if o.LinSol.MaxIt == 0 {
		o.LinSol.MaxIt = 2000
	}
	if o.LinSol.Restart == 0 {
		o.LinSol.Restart = 60
	}
	ndim := len(o.Discrete.Nspans)
	if len(o.Discrete.BcMin) == 0 {
		o.Discrete.BcMin = make([]int, ndim)
	}
	if len(o.Discrete.BcMax) == 0 {
		o.Discrete.BcMax = make([]int, ndim)
	}
	if len(o.Mapping.Min) == 0 {
		o.Mapping.Min = make([]float64, ndim)
	}
	if len(o.Mapping.Max) == 0 {
		o.Mapping.Max = make([]float64, ndim)
		for i := range o.Mapping.Max {
			o.Mapping.Max[i] = 1
		}
	}
	for i := range o.Fields {
		if o.Fields[i].Npts == 0 {
			o.Fields[i].Npts = 20
		}
	}
}

// Validate checks the consistency of the configuration
func (o *Config) Validate() error {
	if o.Source == "" {
		return chk.Err("config: source file is missing")
	}
	d := o.Discrete
	ndim := len(d.Nspans)
	if ndim < 1 || ndim > 3 {
		return chk.Err("config: nspans must have 1, 2 or 3 entries; got %d", ndim)
	}
	if len(d.Degree) != ndim || len(d.BcMin) != ndim || len(d.BcMax) != ndim {
		return chk.Err("config: nspans, degree, bcmin and bcmax must have the same length (%d)", ndim)
	}
	if o.Mapping.Kind != "box" {
		return chk.Err("config: mapping kind %q is not available", o.Mapping.Kind)
	}
	if len(o.Mapping.Min) != ndim || len(o.Mapping.Max) != ndim {
		return chk.Err("config: mapping min and max must have %d entries", ndim)
	}
	if o.Problem.Matrix == "" || o.Problem.Rhs == "" {
		return chk.Err("config: problem requires the names of the matrix and rhs forms")
	}
	for _, f := range o.Fields {
		if f.Name == "" || f.Block < 0 {
			return chk.Err("config: invalid field entry %+v", f)
		}
	}
	for _, n := range o.Refine {
		if n < 1 {
			return chk.Err("config: refinement levels must be positive; got %v", o.Refine)
		}
	}
	return nil
}
