package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/payrecon/internal/pages"
	"github.com/dgallion1/payrecon/internal/pipeline"
	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/dgallion1/payrecon/internal/report"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	mode           string
	format         string
	out            string
	onlyIssues     bool
	failOnBlocking bool
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare <fileA> <fileB>",
		Short: "Compare two payslip exports",
		Long: `Compare two payslip exports. fileA is read with the Silae dialect and
fileB with the Wagyz dialect. PDF, plain text (form feed separated pages),
DOCX and HTML exports are accepted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "PDF text mode: auto, text or ocr (default $DEFAULT_MODE)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table, json, markdown, html or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.onlyIssues, "only-issues", false, "Hide employees without any discrepancy")
	cmd.Flags().BoolVar(&opts.failOnBlocking, "fail-on-blocking", false, "Exit with status 2 when a blocking field differs or is missing")
	return cmd
}

func runCompare(cmd *cobra.Command, root *rootOptions, opts *compareOptions, args []string) error {
	switch opts.format {
	case "table", "json", "markdown", "html", "xlsx":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cmp, cfg, err := root.comparer()
	if err != nil {
		return err
	}
	modeName := opts.mode
	if modeName == "" {
		modeName = cfg.DefaultMode
	}
	mode, err := pages.ParseMode(modeName)
	if err != nil {
		return err
	}

	a, err := readUpload(args[0])
	if err != nil {
		return err
	}
	b, err := readUpload(args[1])
	if err != nil {
		return err
	}

	out, err := cmp.Compare(cmd.Context(), a, b, mode)
	if err != nil {
		return err
	}
	for _, w := range out.DocA.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", a.Name, w)
	}
	for _, w := range out.DocB.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", b.Name, w)
	}

	write := func(w io.Writer) error {
		return writeOutput(w, opts, out.Rows, a.Name, b.Name)
	}
	if opts.out == "" {
		err = write(cmd.OutOrStdout())
	} else {
		err = writeFile(opts.out, write)
	}
	if err != nil {
		return err
	}

	if opts.failOnBlocking && reconcile.Summarize(out.Rows).BlockingIssues > 0 {
		return errBlocking
	}
	return nil
}

func writeOutput(w io.Writer, opts *compareOptions, rows []reconcile.Row, nameA, nameB string) error {
	ropts := report.Options{SourceA: nameA, SourceB: nameB, OnlyIssues: opts.onlyIssues}
	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"rows":    rows,
			"summary": reconcile.Summarize(rows),
		})
	case "markdown":
		return report.WriteMarkdown(w, rows, ropts)
	case "html":
		return report.WriteHTML(w, rows, ropts)
	case "xlsx":
		return report.WriteXLSX(w, rows, ropts)
	default:
		return writeTable(w, rows, ropts)
	}
}

// writeFile creates path and hands it to write. A failed close is reported
// since buffered data may only reach the disk then.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readUpload(path string) (pipeline.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Upload{}, err
	}
	return pipeline.Upload{Name: filepath.Base(path), Data: data}, nil
}

// padRight pads by rune count so accented labels line up.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func padLeft(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}
