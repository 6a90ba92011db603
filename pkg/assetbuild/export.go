// Package assetbuild provides a public Go API for the asset build pipeline:
// PSD textures flattened to PNG, the application icon rendered at fixed
// thumbnail sizes, and font and data directories mirrored into an output
// tree.
//
// This package exposes the build as a library, allowing programmatic use
// without the CLI.
//
// Basic usage:
//
//	result, err := assetbuild.Export(ctx, "assets", "build")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Items, "items rebuilt")
//
// With options:
//
//	result, err := assetbuild.Export(ctx, "assets", "build",
//	    assetbuild.WithManifestFile("assets.yaml"),
//	    assetbuild.WithToolTimeout(time.Minute),
//	    assetbuild.WithKeepGoing(),
//	)
package assetbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/assetbuild/internal/build"
	"github.com/hupe1980/assetbuild/internal/magick"
	"github.com/hupe1980/assetbuild/internal/manifest"
	"github.com/hupe1980/assetbuild/internal/mirror"
)

// Converter turns layered image sources into raster outputs. The default
// converter runs ImageMagick.
type Converter = mirror.Converter

// Category is one entry of the build table: a source path under the
// source root and how it is turned into outputs.
type Category = manifest.Category

// Category kinds.
const (
	KindThumbnail = manifest.KindThumbnail
	KindConvert   = manifest.KindConvert
	KindCopy      = manifest.KindCopy
)

// ErrSourceMissing is returned (wrapped) when a category's source does not
// exist.
var ErrSourceMissing = build.ErrSourceMissing

// ErrToolNotFound is returned (wrapped) when ImageMagick is not on PATH.
var ErrToolNotFound = magick.ErrNotFound

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures an export.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	categories   []manifest.Category
	manifestFile string

	magickName       string
	magickConstraint string
	toolTimeout      time.Duration
	converter        Converter

	keepGoing bool
	dryRun    bool
	logger    *slog.Logger
}

// WithManifestFile loads the category table from a YAML manifest.
func WithManifestFile(path string) Option { return func(o *options) { o.manifestFile = path } }

// WithCategories replaces the default category table. Empty extension and
// size fields get the same defaults as in a manifest file.
func WithCategories(categories ...Category) Option {
	return func(o *options) { o.categories = categories }
}

// WithMagick sets the ImageMagick executable name or path.
func WithMagick(name string) Option { return func(o *options) { o.magickName = name } }

// WithMagickConstraint sets the accepted ImageMagick version range
// (default ">= 6.0.0").
func WithMagickConstraint(c string) Option { return func(o *options) { o.magickConstraint = c } }

// WithToolTimeout bounds every ImageMagick invocation.
func WithToolTimeout(d time.Duration) Option { return func(o *options) { o.toolTimeout = d } }

// WithConverter uses c instead of ImageMagick.
func WithConverter(c Converter) Option { return func(o *options) { o.converter = c } }

// WithKeepGoing continues with the remaining categories when one fails.
func WithKeepGoing() Option { return func(o *options) { o.keepGoing = true } }

// WithDryRun computes the pending work without writing anything.
func WithDryRun() Option { return func(o *options) { o.dryRun = true } }

// WithLogger sets the logger for build progress (default: discard).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// StepSummary reports one category of a finished export.
type StepSummary struct {
	Name     string
	Kind     string
	Items    int
	Duration time.Duration
	Err      error
}

// Result holds the outcome of an export.
type Result struct {
	// Items is the number of outputs regenerated (or pending, in a dry run).
	Items int

	// Steps reports each category in build order.
	Steps []StepSummary

	// Failures lists the individual files that failed to convert.
	Failures []error

	// Outputs lists every output path the build is responsible for,
	// relative to the output directory.
	Outputs []string

	// Duration is the wall-clock time of the build.
	Duration time.Duration
}

// Export builds sourceRoot into outputDir. Conversion failures of single
// files do not stop the build; they are listed in Result.Failures and
// reported as a joined error alongside the result.
func Export(ctx context.Context, sourceRoot, outputDir string, opts ...Option) (*Result, error) {
	if sourceRoot == "" {
		return nil, errors.New("source root must not be empty")
	}

	if outputDir == "" {
		return nil, errors.New("output directory must not be empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = discardLogger()
	}

	m, err := o.loadManifest()
	if err != nil {
		return nil, err
	}

	d := &build.Driver{
		SourceRoot: sourceRoot,
		OutputRoot: outputDir,
		Manifest:   m,
		Converter:  o.converter,
		Logger:     logger,
		KeepGoing:  o.keepGoing,
		DryRun:     o.dryRun,
	}

	if d.Converter == nil && !o.dryRun {
		tool, err := magick.Lookup(o.magickName, magick.WithTimeout(o.toolTimeout))
		if err != nil {
			return nil, err
		}

		if err := tool.Check(ctx, o.magickConstraint); err != nil {
			return nil, err
		}

		d.Converter = tool
	}

	report, err := d.Run(ctx)
	result := newResult(report)

	if err != nil {
		return result, err
	}

	return result, report.Err()
}

func (o *options) loadManifest() (*manifest.Manifest, error) {
	switch {
	case len(o.categories) > 0:
		m, err := manifest.New(o.categories...)
		if err != nil {
			return nil, fmt.Errorf("invalid categories: %w", err)
		}

		return m, nil
	case o.manifestFile != "":
		return manifest.Load(o.manifestFile)
	default:
		return manifest.Default(), nil
	}
}

func newResult(r *build.Report) *Result {
	combined := r.Combined()

	res := &Result{
		Items:    r.Total(),
		Outputs:  combined.Outputs,
		Duration: r.Duration,
	}

	for _, s := range r.Steps {
		res.Steps = append(res.Steps, StepSummary{
			Name:     s.Name,
			Kind:     string(s.Kind),
			Items:    s.Result.Count,
			Duration: s.Duration,
			Err:      s.Err,
		})
	}

	for _, f := range combined.Failures {
		res.Failures = append(res.Failures, f)
	}

	return res
}
