// Package thumbnail renders a single layered source image into a fixed set
// of square raster sizes.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/assetbuild/internal/mirror"
	"github.com/hupe1980/assetbuild/internal/stale"
)

// DefaultSizes lists the rendered edge lengths in pixels, largest first.
var DefaultSizes = []int{512, 256, 128, 64, 32, 16}

// DefaultExt is the extension of rendered thumbnails.
const DefaultExt = ".png"

// Renderer produces one output per size next to the mirrored source path.
type Renderer struct {
	SourceRoot string
	OutputRoot string
	Converter  mirror.Converter
	Logger     *slog.Logger

	// Ext overrides DefaultExt.
	Ext string

	// DryRun records actions without invoking the converter.
	DryRun bool
}

// OutputName returns the thumbnail path for rel at size, e.g.
// "icon/icon.psd" at 64 becomes "icon/icon@64.png".
func OutputName(rel string, size int, ext string) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))

	return filepath.Join(filepath.Dir(rel), fmt.Sprintf("%s@%d%s", base, size, ext))
}

// RenderSizes renders rel at every size whose output is stale. Each size is
// checked independently, so a partial set of outputs is completed without
// re-rendering the rest.
func (r *Renderer) RenderSizes(ctx context.Context, rel string, sizes []int) (mirror.Result, error) {
	var res mirror.Result

	src := filepath.Join(r.SourceRoot, rel)

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: file %s", mirror.ErrSourceMissing, src)
		}

		return res, fmt.Errorf("stat %s: %w", src, err)
	}

	if !r.DryRun {
		if err := os.MkdirAll(filepath.Join(r.OutputRoot, filepath.Dir(rel)), 0o755); err != nil {
			return res, fmt.Errorf("creating output directory: %w", err)
		}
	}

	ext := r.Ext
	if ext == "" {
		ext = DefaultExt
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		targetRel := OutputName(rel, size, ext)
		dst := filepath.Join(r.OutputRoot, targetRel)

		res.Outputs = append(res.Outputs, targetRel)

		isStale, err := stale.IsStale(src, dst)
		if err != nil {
			return res, err
		}

		if !isStale {
			continue
		}

		logger.Debug("rendering thumbnail",
			slog.String("name", filepath.Base(rel)),
			slog.Int("size", size),
			slog.String("from", src),
			slog.String("to", dst),
		)

		res.Count++
		res.Actions = append(res.Actions, mirror.Action{Source: rel, Target: targetRel})

		if r.DryRun {
			continue
		}

		if err := r.Converter.Resize(ctx, src, dst, size); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}

			logger.Warn("thumbnail render failed",
				slog.String("source", src),
				slog.Int("size", size),
				slog.String("error", err.Error()),
			)

			res.Failures = append(res.Failures, &mirror.FileError{Source: rel, Target: targetRel, Err: err})
		}
	}

	return res, nil
}
