package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/assetbuild/internal/build"
	"github.com/hupe1980/assetbuild/internal/config"
	"github.com/hupe1980/assetbuild/internal/logging"
	"github.com/hupe1980/assetbuild/internal/magick"
	"github.com/hupe1980/assetbuild/internal/manifest"
)

// driverOptions selects how newDriver prepares a build.
type driverOptions struct {
	// dryRun skips ImageMagick discovery and writes nothing.
	dryRun bool
}

// newDriver resolves configuration into a build driver for outputDir.
func newDriver(ctx context.Context, outputDir string, opts driverOptions) (*build.Driver, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	m, err := loadManifest(cfg)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: err}
	}

	if _, err := os.Stat(cfg.Source); err != nil {
		return nil, &ExitError{Code: ExitGeneral, Err: fmt.Errorf("source root: %w", err)}
	}

	d := &build.Driver{
		SourceRoot: cfg.Source,
		OutputRoot: outputDir,
		Manifest:   m,
		Logger:     logger,
		KeepGoing:  cfg.KeepGoing,
		DryRun:     opts.dryRun,
	}

	if opts.dryRun || !needsConverter(m) {
		return d, nil
	}

	tool, err := magick.Lookup(cfg.Magick, magick.WithTimeout(cfg.ToolTimeout))
	if err != nil {
		return nil, &ExitError{Code: ExitMissingTool, Err: err}
	}

	if err := tool.Check(ctx, cfg.MagickConstraint); err != nil {
		return nil, &ExitError{Code: ExitMissingTool, Err: err}
	}

	logger.Debug("using imagemagick", slog.String("path", tool.Path()))

	d.Converter = tool

	return d, nil
}

func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	if cfg.Manifest == "" {
		return manifest.Default(), nil
	}

	return manifest.Load(cfg.Manifest)
}

func needsConverter(m *manifest.Manifest) bool {
	for _, c := range m.Categories {
		if c.Kind != manifest.KindCopy {
			return true
		}
	}

	return false
}

// buildError maps a finished build to the command's exit status. Failed
// categories win over per-file conversion failures.
func buildError(w io.Writer, report *build.Report, runErr error) error {
	if runErr != nil {
		return &ExitError{Code: ExitGeneral, Err: runErr}
	}

	for _, s := range report.Steps {
		if s.Err != nil {
			return &ExitError{Code: ExitGeneral, Err: report.Err()}
		}
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}

	for _, f := range failures {
		_, _ = fmt.Fprintf(w, "failed: %v\n", f)
	}

	return &ExitError{
		Code: ExitConversion,
		Err:  fmt.Errorf("%d of %d item(s) failed to convert", len(failures), report.Total()),
	}
}

// watchDirs returns the top-level source directories that hold the
// manifest's categories, e.g. "icon" and "res" for the default manifest.
// Directories that do not exist are skipped.
func watchDirs(sourceRoot string, m *manifest.Manifest, logger *slog.Logger) []string {
	seen := make(map[string]bool)

	var dirs []string

	for _, c := range m.Categories {
		src := filepath.ToSlash(filepath.Clean(filepath.FromSlash(c.Source)))
		if c.Kind == manifest.KindThumbnail {
			src = path.Dir(src)
		}

		dir := filepath.Join(sourceRoot, strings.SplitN(src, "/", 2)[0])
		if seen[dir] {
			continue
		}

		seen[dir] = true

		if _, err := os.Stat(dir); err != nil {
			logger.Warn("not watching missing directory", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}

		dirs = append(dirs, dir)
	}

	sort.Strings(dirs)

	return dirs
}
