package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/velab/internal/apiversion"
)

// Version information - can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of velab",
	Long:  `Print the version of velab and of the netlist accessor API it provides.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "velab version %s\n", Version)
		fmt.Fprintf(out, "  Netlist API: %s\n", apiversion.Current)
		if GitCommit != "unknown" {
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		}
		if BuildDate != "unknown" {
			fmt.Fprintf(out, "  Build date: %s\n", BuildDate)
		}
	},
}
