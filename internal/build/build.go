// Package build runs the asset categories of a manifest in order and
// reports what each step did.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hupe1980/assetbuild/internal/manifest"
	"github.com/hupe1980/assetbuild/internal/mirror"
	"github.com/hupe1980/assetbuild/internal/thumbnail"
)

// ErrSourceMissing marks an expected source file or directory that does
// not exist.
var ErrSourceMissing = mirror.ErrSourceMissing

// Driver builds every category of a manifest from SourceRoot into OutputRoot.
type Driver struct {
	SourceRoot string
	OutputRoot string
	Manifest   *manifest.Manifest
	Converter  mirror.Converter
	Logger     *slog.Logger

	// KeepGoing records a failing category and continues with the next one
	// instead of aborting the run.
	KeepGoing bool

	// DryRun computes pending actions without writing any output.
	DryRun bool
}

// Run executes one full build. The returned report is non-nil even when an
// error aborts the run, and holds the steps completed so far.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	logger := d.logger()

	m := d.Manifest
	if m == nil {
		m = manifest.Default()
	}

	report := &Report{}
	start := time.Now()

	defer func() {
		report.Duration = time.Since(start)
	}()

	for _, c := range m.Categories {
		stepStart := time.Now()
		res, err := d.runStep(ctx, c)

		step := StepReport{
			Name:     c.Name,
			Kind:     c.Kind,
			Result:   res,
			Duration: time.Since(stepStart),
			Err:      err,
		}
		report.Steps = append(report.Steps, step)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}

			if !d.KeepGoing {
				return report, fmt.Errorf("building %s: %w", c.Name, err)
			}

			logger.Error("category failed", slog.String("category", c.Name), slog.String("error", err.Error()))

			continue
		}

		if res.Count > 0 {
			logger.Info(c.Name,
				slog.Int("items", res.Count),
				slog.Duration("duration", step.Duration),
			)
		}
	}

	logger.Info("build finished",
		slog.Int("items", report.Total()),
		slog.Duration("duration", time.Since(start)),
	)

	return report, nil
}

func (d *Driver) runStep(ctx context.Context, c manifest.Category) (mirror.Result, error) {
	rel := filepath.FromSlash(c.Source)

	switch c.Kind {
	case manifest.KindThumbnail:
		r := &thumbnail.Renderer{
			SourceRoot: d.SourceRoot,
			OutputRoot: d.OutputRoot,
			Converter:  d.Converter,
			Logger:     d.logger(),
			Ext:        c.TargetExt,
			DryRun:     d.DryRun,
		}

		return r.RenderSizes(ctx, rel, c.Sizes)
	case manifest.KindConvert:
		return d.mirror().Convert(ctx, rel, d.Converter, c.SourceExt, c.TargetExt)
	case manifest.KindCopy:
		return d.mirror().Copy(ctx, rel)
	default:
		return mirror.Result{}, fmt.Errorf("unknown category kind %q", c.Kind)
	}
}

func (d *Driver) mirror() *mirror.Mirror {
	return &mirror.Mirror{
		SourceRoot: d.SourceRoot,
		OutputRoot: d.OutputRoot,
		Logger:     d.logger(),
		DryRun:     d.DryRun,
	}
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}

	return d.Logger
}

// StepReport describes one category of a build run.
type StepReport struct {
	Name     string
	Kind     manifest.Kind
	Result   mirror.Result
	Duration time.Duration

	// Err is set when the category could not be processed.
	Err error
}

// Report aggregates the steps of a build run.
type Report struct {
	Steps    []StepReport
	Duration time.Duration
}

// Total returns the number of items processed across all steps.
func (r *Report) Total() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Result.Count
	}

	return n
}

// Step returns the report for the named category.
func (r *Report) Step(name string) (StepReport, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}

	return StepReport{}, false
}

// Combined merges the results of all steps.
func (r *Report) Combined() mirror.Result {
	var res mirror.Result
	for _, s := range r.Steps {
		res.Add(s.Result)
	}

	return res
}

// Failures returns every per-file conversion failure in build order.
func (r *Report) Failures() []*mirror.FileError {
	return r.Combined().Failures
}

// Err joins failed categories and per-file failures into one error, or
// returns nil when the run was clean.
func (r *Report) Err() error {
	var errs []error

	for _, s := range r.Steps {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}

		for _, f := range s.Result.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, f))
		}
	}

	return errors.Join(errs...)
}
