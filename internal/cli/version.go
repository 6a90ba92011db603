package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/assetbuild/internal/magick"
	"github.com/hupe1980/assetbuild/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput bool
		tools      bool
		magickName string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Display the version, git commit, build date, Go version, and platform.

With --tools the ImageMagick executable is located and its version is
reported as well.`,
		Args: cobra.NoArgs,
		// Override parent PersistentPreRunE, version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if tools {
				info.Magick = probeMagick(cmd.Context(), magickName)
			}

			if jsonOutput {
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), j)

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	cmd.Flags().BoolVar(&tools, "tools", false, "also report the ImageMagick installation")
	cmd.Flags().StringVar(&magickName, "magick", "", fmt.Sprintf("ImageMagick executable (default: %s)", magick.DefaultBinary()))

	return cmd
}

func probeMagick(ctx context.Context, name string) *version.Tool {
	tool, err := magick.Lookup(name)
	if err != nil {
		return &version.Tool{Error: err.Error()}
	}

	v, err := tool.Version(ctx)
	if err != nil {
		return &version.Tool{Path: tool.Path(), Error: err.Error()}
	}

	return &version.Tool{Path: tool.Path(), Version: v.String()}
}
