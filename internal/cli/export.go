package cli

import (
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <output-dir>",
		Short: "Build all asset categories into an output directory",
		Long: `Export runs one full build into <output-dir>, in this order:

  icon      icon/icon.psd rendered at 512, 256, 128, 64, 32 and 16 pixels
  textures  res/textures/**.psd flattened to .png
  fonts     res/fonts copied
  data      res/data copied

Outputs that are newer than their sources are skipped. Use -v to print
per-category item counts and timings, and --manifest to replace the
category table.

Exit codes: 2 usage error, 3 ImageMagick missing, 1 build failure,
4 one or more files failed to convert.`,
		Args: outputDirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}

	registerBuildFlags(cmd)

	return cmd
}

func runExport(cmd *cobra.Command, outputDir string) error {
	ctx := cmd.Context()

	driver, err := newDriver(ctx, outputDir, driverOptions{})
	if err != nil {
		return err
	}

	report, runErr := driver.Run(ctx)

	return buildError(cmd.ErrOrStderr(), report, runErr)
}
