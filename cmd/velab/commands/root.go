// Package commands provides the CLI commands for the velab tool.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "velab",
	Short: "Verilog and SystemVerilog elaborator",
	Long: `velab elaborates a parsed Verilog/SystemVerilog design into a netlist.

The design is read from a YAML description whose expressions, statements
and types are written in Verilog syntax.

Usage:
  velab elaborate design.yaml             Elaborate and dump the netlist
  velab elaborate -t json design.yaml     Export the netlist as JSON
  velab watch design.yaml                 Re-elaborate whenever the design changes
  velab version                           Print version`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(elaborateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a velab.yaml or velab.json config file")
	rootCmd.PersistentFlags().StringVarP(&opts.generation, "generation", "g", "", "Language generation (1995, 2001, 2005, 2009, 2012, 2017)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.roots, "root", nil, "Root module name (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&opts.target, "target", "t", "text", "Output backend (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log elaboration passes")
}
