// Package mirror walks a source subtree and reproduces it under an output
// root, copying or converting every file whose output is stale.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"

	"github.com/hupe1980/assetbuild/internal/stale"
)

// ErrSourceMissing marks a source directory or file that the build expects
// but that does not exist.
var ErrSourceMissing = errors.New("source missing")

// ErrTargetConflict marks a source file whose output path was already
// claimed by another file in the same directory, such as a.psd next to
// a.PSD.
var ErrTargetConflict = errors.New("output already produced by another source")

// Converter turns layered image sources into raster outputs.
type Converter interface {
	// Flatten writes the first composite of src to dst.
	Flatten(ctx context.Context, src, dst string) error

	// Resize writes the first composite of src, scaled to size x size, to dst.
	Resize(ctx context.Context, src, dst string, size int) error
}

// copyOptions dereferences symlinked files so outputs are regular files.
var copyOptions = copy.Options{
	OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
}

// Mirror maps paths under SourceRoot to the same relative paths under
// OutputRoot.
type Mirror struct {
	SourceRoot string
	OutputRoot string
	Logger     *slog.Logger

	// DryRun records actions without touching the output tree.
	DryRun bool
}

// fileOp describes how a single file is mirrored.
type fileOp struct {
	// target maps a source-relative file path to its output-relative path.
	// It returns false for files that are not part of the traversal.
	target func(rel string) (string, bool)

	apply func(ctx context.Context, src, dst string) error

	// tolerant ops record apply failures and keep going.
	tolerant bool
}

// Copy mirrors the directory rel byte for byte.
func (m *Mirror) Copy(ctx context.Context, rel string) (Result, error) {
	op := fileOp{
		target: func(p string) (string, bool) { return p, true },
		apply: func(_ context.Context, src, dst string) error {
			return copy.Copy(src, dst, copyOptions)
		},
	}

	var res Result
	err := m.walk(ctx, rel, op, &res)

	return res, err
}

// Convert mirrors the directory rel, converting every file with extension
// srcExt into a flattened raster with extension dstExt. Other files are
// ignored. A failed conversion is recorded in the result and the walk
// continues with the remaining files.
func (m *Mirror) Convert(ctx context.Context, rel string, conv Converter, srcExt, dstExt string) (Result, error) {
	op := fileOp{
		target: func(p string) (string, bool) {
			ext := filepath.Ext(p)
			if !strings.EqualFold(ext, srcExt) {
				return "", false
			}

			return strings.TrimSuffix(p, ext) + dstExt, true
		},
		apply: func(ctx context.Context, src, dst string) error {
			return conv.Flatten(ctx, src, dst)
		},
		tolerant: true,
	}

	var res Result
	err := m.walk(ctx, rel, op, &res)

	return res, err
}

func (m *Mirror) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}

	return m.Logger
}

// walk processes the directory rel: subdirectories first, then its files.
func (m *Mirror) walk(ctx context.Context, rel string, op fileOp, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcDir := filepath.Join(m.SourceRoot, rel)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: directory %s", ErrSourceMissing, srcDir)
		}

		return fmt.Errorf("listing %s: %w", srcDir, err)
	}

	if !m.DryRun {
		if err := os.MkdirAll(filepath.Join(m.OutputRoot, rel), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	var files, dirs []string

	for _, e := range entries {
		childRel := filepath.Join(rel, e.Name())

		isDir, err := isDirectory(filepath.Join(m.SourceRoot, childRel), e)
		if err != nil {
			return err
		}

		if isDir {
			dirs = append(dirs, childRel)
			continue
		}

		files = append(files, childRel)
	}

	for _, d := range dirs {
		if err := m.walk(ctx, d, op, res); err != nil {
			return err
		}
	}

	claimed := make(map[string]string, len(files))

	for _, f := range files {
		targetRel, ok := op.target(f)
		if !ok {
			continue
		}

		if prev, dup := claimed[targetRel]; dup {
			m.logger().Warn("conflicting sources",
				slog.String("source", f),
				slog.String("target", targetRel),
				slog.String("claimedBy", prev),
			)

			res.Failures = append(res.Failures, &FileError{
				Source: f,
				Target: targetRel,
				Err:    fmt.Errorf("%w: %s", ErrTargetConflict, prev),
			})

			continue
		}

		claimed[targetRel] = f

		if err := m.mirrorFile(ctx, f, targetRel, op, res); err != nil {
			return err
		}
	}

	return nil
}

func (m *Mirror) mirrorFile(ctx context.Context, rel, targetRel string, op fileOp, res *Result) error {
	src := filepath.Join(m.SourceRoot, rel)
	dst := filepath.Join(m.OutputRoot, targetRel)

	res.Outputs = append(res.Outputs, targetRel)

	isStale, err := stale.IsStale(src, dst)
	if err != nil {
		return err
	}

	if !isStale {
		return nil
	}

	m.logger().Debug("mirroring file",
		slog.String("name", filepath.Base(rel)),
		slog.String("from", src),
		slog.String("to", dst),
	)

	res.Count++
	res.Actions = append(res.Actions, Action{Source: rel, Target: targetRel})

	if m.DryRun {
		return nil
	}

	if err := op.apply(ctx, src, dst); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !op.tolerant {
			return fmt.Errorf("copying %s: %w", rel, err)
		}

		m.logger().Warn("conversion failed",
			slog.String("source", src),
			slog.String("error", err.Error()),
		)

		res.Failures = append(res.Failures, &FileError{Source: rel, Target: targetRel, Err: err})
	}

	return nil
}

// isDirectory follows symlinks so that linked directories are traversed.
func isDirectory(path string, e fs.DirEntry) (bool, error) {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir(), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("resolving link %s: %w", path, err)
	}

	return info.IsDir(), nil
}
