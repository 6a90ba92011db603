package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetbuild/internal/logging"
	"github.com/hupe1980/assetbuild/internal/output"
	"github.com/hupe1980/assetbuild/internal/plan"
)

type planOptions struct {
	diff   bool
	json   bool
	color  bool
	strict bool
	output string
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <output-dir>",
		Short: "Show what the next export would do",
		Long: `Plan performs a dry run of export: it lists every output that is
missing or older than its source without writing anything, and does not
require ImageMagick.

With --diff it also prints a unified diff between the files currently in
<output-dir> and the file set a build produces, which reveals stale
leftovers and missing outputs.`,
		Args: outputDirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	registerBuildFlags(cmd)

	f := cmd.Flags()
	f.BoolVar(&opts.diff, "diff", false, "diff the output tree against the expected file set")
	f.BoolVar(&opts.json, "json", false, "print the plan as JSON")
	f.BoolVar(&opts.color, "color", false, "colorize diff output")
	f.BoolVar(&opts.strict, "exit-code", false, "exit with code 1 when work is pending")
	f.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")

	return cmd
}

func runPlan(cmd *cobra.Command, outputDir string, opts *planOptions) error {
	ctx := cmd.Context()

	driver, err := newDriver(ctx, outputDir, driverOptions{dryRun: true})
	if err != nil {
		return err
	}

	driver.KeepGoing = true

	report, err := driver.Run(ctx)
	if err != nil {
		return &ExitError{Code: ExitGeneral, Err: err}
	}

	p := plan.FromReport(report)
	out := new(bytes.Buffer)

	if opts.json {
		if err := plan.FormatPlanJSON(out, p); err != nil {
			return &ExitError{Code: ExitGeneral, Err: err}
		}
	} else {
		plan.FormatPlan(out, p)
	}

	if opts.diff {
		actual, err := plan.ActualFiles(outputDir)
		if err != nil {
			return &ExitError{Code: ExitGeneral, Err: err}
		}

		result, err := plan.ComputeDiff(actual, plan.ExpectedFiles(report), plan.DefaultDiffOptions())
		if err != nil {
			return &ExitError{Code: ExitGeneral, Err: err}
		}

		plan.WriteDiff(out, result, opts.color)
	}

	w := output.New(opts.output, cmd.OutOrStdout(), logging.FromContext(ctx))
	if err := w.Write(out.Bytes()); err != nil {
		return &ExitError{Code: ExitGeneral, Err: err}
	}

	if opts.strict && p.Total > 0 {
		return &ExitError{Code: ExitGeneral, Err: fmt.Errorf("%d item(s) pending", p.Total)}
	}

	return nil
}
