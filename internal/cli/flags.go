package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetbuild/internal/magick"
)

// registerBuildFlags adds the flags shared by every command that runs a
// build. Values reach the command through config.Load.
func registerBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("manifest", "", "asset category manifest (default: icon, textures, fonts, data)")
	f.String("magick", "", fmt.Sprintf("ImageMagick executable (default: %s)", magick.DefaultBinary()))
	f.String("magick-constraint", magick.DefaultConstraint, "required ImageMagick version range")
	f.Duration("tool-timeout", 0, "time limit per ImageMagick invocation (0 = none)")
	f.Bool("keep-going", false, "continue with remaining categories when one fails")
}

// outputDirArg accepts exactly one positional argument, the output
// directory. Anything else is a usage error.
func outputDirArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &ExitError{
			Code: ExitUsage,
			Err:  fmt.Errorf("expected 1 argument, got %d\nusage: %s", len(args), cmd.UseLine()),
		}
	}

	return nil
}
