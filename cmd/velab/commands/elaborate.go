package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/apiversion"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/elab"
	"martianoff/velab/internal/pform/loader"
	"martianoff/velab/internal/target"
)

type options struct {
	configPath string
	generation string
	roots      []string
	target     string
	output     string
	verbose    bool
}

var opts options

var elaborateCmd = &cobra.Command{
	Use:   "elaborate design.yaml",
	Short: "Elaborate a design and write its netlist",
	Long: `Elaborate a design and write the netlist with the selected target.

Diagnostics go to stderr. The command fails when any error was reported.

Examples:
  velab elaborate top.yaml                       # Text dump to stdout
  velab elaborate -t json -o top.json top.yaml   # JSON export to a file
  velab elaborate --root top -g 2005 top.yaml    # Pick the root and standard`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if opts.output != "" {
			f, err := os.Create(opts.output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return elaborateFile(args[0], out, cmd.ErrOrStderr())
	},
}

func init() {
	elaborateCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the netlist to a file instead of stdout")
}

// loadConfig reads the config file named by --config, or the one found
// next to the design, and applies the command line overrides.
func loadConfig(designPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(filepath.Dir(designPath))
	}
	if err != nil {
		return nil, err
	}
	if opts.generation != "" {
		cfg.Language.Generation = config.Generation(opts.generation)
	}
	if len(opts.roots) > 0 {
		cfg.Roots = opts.roots
	}
	if err := apiversion.Check(cfg.API.Require); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(stderr io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// elaborateFile runs the whole pipeline for one design file: load,
// elaborate, emit. Diagnostics are written to stderr as they are found.
func elaborateFile(path string, out, stderr io.Writer) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	backend, err := target.Lookup(opts.target)
	if err != nil {
		return err
	}
	src, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	logger := newLogger(stderr)
	reporter := elaberr.NewReporter(stderr)
	des, err := elab.New(cfg, elab.WithDiagnostics(reporter), elab.WithLogger(logger)).Elaborate(src)
	if err != nil {
		return fmt.Errorf("%s: %d error(s), %d warning(s)", path, reporter.Errors(), reporter.Warnings())
	}
	logger.WithFields(logrus.Fields{
		"design":   path,
		"warnings": reporter.Warnings(),
		"target":   backend.Name(),
	}).Debug("elaborated")
	return backend.Emit(out, des)
}
