package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetbuild/internal/config"
	"github.com/hupe1980/assetbuild/internal/logging"
	"github.com/hupe1980/assetbuild/internal/watch"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <output-dir>",
		Short: "Rebuild assets whenever the sources change",
		Long: `Watch performs one full build into <output-dir>, then monitors the
source directories and rebuilds on every created, modified or moved file
until interrupted with Ctrl+C.

Rebuilds never overlap: events that arrive during a rebuild are folded
into a single follow-up rebuild. Use --debounce to also wait for a quiet
period before rebuilding.`,
		Args: outputDirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}

	registerBuildFlags(cmd)
	cmd.Flags().Duration("debounce", 0, "quiet period before a rebuild (0 = rebuild immediately)")

	return cmd
}

func runWatch(cmd *cobra.Command, outputDir string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	driver, err := newDriver(ctx, outputDir, driverOptions{})
	if err != nil {
		return err
	}

	runFn := func(runCtx context.Context) (*watch.RunResult, error) {
		report, runErr := driver.Run(runCtx)
		if runErr != nil {
			return nil, runErr
		}

		for _, s := range report.Steps {
			if s.Err != nil {
				return nil, report.Err()
			}
		}

		return &watch.RunResult{
			Items:    report.Total(),
			Failures: len(report.Failures()),
			Duration: report.Duration.Round(time.Millisecond),
		}, nil
	}

	opts := watch.Options{
		Dirs:     watchDirs(cfg.Source, driver.Manifest, logger),
		Debounce: cfg.Debounce,
		Logger:   logger,
		Out:      cmd.ErrOrStderr(),
	}

	if err := watch.Run(ctx, opts, runFn); err != nil {
		return &ExitError{Code: ExitGeneral, Err: err}
	}

	return nil
}
