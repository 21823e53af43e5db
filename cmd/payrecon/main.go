// Command payrecon compares the payslip exports of two payroll systems
// from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/payrecon/internal/config"
	"github.com/dgallion1/payrecon/internal/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errBlocking makes the process exit with status 2 under --fail-on-blocking.
var errBlocking = errors.New("blocking discrepancies found")

type rootOptions struct {
	schemaFile string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "payrecon",
		Short: "Reconcile payslips exported by two payroll systems",
		Long: `payrecon splits two payslip exports into per-employee documents, pairs
employees across both files (NIR, key, name) and compares the canonical
payroll amounts and leave counters of each pair.

Examples:
  payrecon compare silae.pdf wagyz.pdf
  payrecon compare --format markdown --out report.md silae.pdf wagyz.pdf
  payrecon compare -f xlsx -o ecarts.xlsx --only-issues silae.pdf wagyz.pdf
  payrecon fields`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.schemaFile, "schema", "", "YAML field table overriding the built-in one (default $SCHEMA_FILE)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log extraction steps to stderr")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	cmd.AddCommand(newCompareCmd(opts), newFieldsCmd(opts))
	return cmd
}

// comparer builds the comparison stack from the environment and flags.
func (o *rootOptions) comparer() (*pipeline.Comparer, config.Config, error) {
	cfg := config.Load()
	if o.schemaFile != "" {
		cfg.SchemaFile = o.schemaFile
	}
	cfg.LogLevel = "warn"
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	log, _ := config.NewLogger(config.Config{LogLevel: cfg.LogLevel}, os.Stderr)
	cmp, err := pipeline.NewComparerFromConfig(cfg, log)
	return cmp, cfg, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, errBlocking) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
