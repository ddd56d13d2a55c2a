// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/fem"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/low"
	"github.com/ratnania/vale/out"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "vale",
	Short:         "Vale -- variational forms on B-spline spaces",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		io.Verbose = verbose
		if verbose {
			io.PfWhite("\nVale -- variational forms on B-spline spaces\n")
			io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
			io.Pf("Use of this source code is governed by a BSD-style\n")
			io.Pf("license that can be found in the LICENSE file.\n\n")
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Assemble and solve the problem described by a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := inp.ReadConfig(args[0])
		if err != nil {
			return err
		}
		sim, err := fem.NewMain(cfg, verbose)
		if err != nil {
			return err
		}
		if err = sim.Run(); err != nil {
			return err
		}
		names := make([]string, 0, len(sim.Errors))
		for name := range sim.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			io.Pf("%-12s L2 error = %.6e\n", name, sim.Errors[name])
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <file.vl>...",
	Short: "Parse source files and lower all forms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nfailed := 0
		for _, path := range args {
			if err := check(path); err != nil {
				io.PfRed("%s: %v\n", path, err)
				nfailed++
				continue
			}
			io.PfGreen("%s: OK\n", path)
		}
		if nfailed > 0 {
			return chk.Err("%d of %d files failed", nfailed, len(args))
		}
		return nil
	},
}

var convergeCmd = &cobra.Command{
	Use:   "converge <config.yaml>",
	Short: "Run the refinement levels of a configuration file and plot the L2 errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := inp.ReadConfig(args[0])
		if err != nil {
			return err
		}
		nspans, errors, err := fem.Converge(cfg, verbose)
		if err != nil {
			return err
		}
		for name, e := range errors {
			rates, err := out.Rates(nspans, e)
			if err != nil {
				return err
			}
			io.Pf("%s\n  nspans = %v\n  errors = %v\n  rates  = %v\n", name, nspans, e, rates)
		}
		if plotdir != "" {
			fnkey := io.FnKey(filepath.Base(args[0]))
			return out.PlotConvergence(plotdir, fnkey, nspans, errors)
		}
		return nil
	},
}

var plotdir string

// check parses a source file and lowers its forms with unset functions and constants
func check(path string) error {
	prog, err := inp.ReadFile(path)
	if err != nil {
		return err
	}
	scope := &low.ProgramScope{Prog: prog}
	for _, d := range prog.Decls {
		if def, ok := d.(*inp.FormDef); ok {
			k, err := low.Lower(def, scope)
			if err != nil {
				return err
			}
			if verbose {
				io.Pf("  %v\n", k)
			}
		}
	}
	return nil
}

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("\nERROR: %v\n", err)
			io.Pf("See location of error below:\n")
			chk.Verbose = true
			for i := 5; i > 3; i-- {
				chk.CallerInfo(i)
			}
			os.Exit(2)
		}
	}()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show messages")
	convergeCmd.Flags().StringVar(&plotdir, "plot", "", "directory of the convergence plot; empty => no plot")
	rootCmd.AddCommand(runCmd, checkCmd, convergeCmd)
	if err := rootCmd.Execute(); err != nil {
		io.PfRed("ERROR: %v\n", err)
		os.Exit(1)
	}
}
