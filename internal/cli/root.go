// Package cli implements the cobra command tree for assetbuild.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetbuild/internal/config"
	"github.com/hupe1980/assetbuild/internal/logging"
)

// Process exit codes.
const (
	ExitGeneral     = 1 // build or filesystem failure
	ExitUsage       = 2 // wrong arguments, bad flags or config
	ExitMissingTool = 3 // ImageMagick not found or too old
	ExitConversion  = 4 // one or more files failed to convert
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	return run(NewRootCommand(), os.Stderr)
}

// run executes cmd, reports any error on stderr and maps it to an exit code.
func run(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return ExitGeneral
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "assetbuild",
		Short: "Build game assets from design sources",
		Long: `assetbuild converts layered design images into raster textures,
renders the application icon at fixed thumbnail sizes, and mirrors font
and data directories into a build output tree.

Only outputs that are missing or older than their sources are
regenerated, so repeated builds are cheap. Image conversion is delegated
to ImageMagick, which must be installed and on PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			logger := logging.SetupWithWriter(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.EffectiveLogLevel()),
				slog.String("source", cfg.Source),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .assetbuild.yaml)")
	pf.String("log-level", config.LogLevelWarn, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.String("log-file", "", "also write logs to this file (rotated)")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.CountP("verbose", "v", "show build summaries (-v) and file paths (-vv)")
	pf.StringP("source", "s", ".", "asset source root")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newExportCommand(),
		newWatchCommand(),
		newPlanCommand(),
	)

	return cmd
}
