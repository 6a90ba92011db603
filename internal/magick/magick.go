// Package magick wraps the ImageMagick command-line tool used to flatten
// layered images and render fixed-size thumbnails.
//
// The tool is invoked as a subprocess with an argv slice. Every source is
// addressed with the "[0]" frame selector so that multi-frame and
// multi-layer inputs always flatten to the first composite.
package magick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Rendering parameters for thumbnails.
const (
	Density = 300
	Quality = 100
)

// DefaultConstraint is the semver constraint applied when none is configured.
const DefaultConstraint = ">= 6.0.0"

// ErrNotFound is returned when the ImageMagick binary is not on PATH.
var ErrNotFound = errors.New("imagemagick must be installed before using this tool")

var versionPattern = regexp.MustCompile(`ImageMagick (\d+\.\d+\.\d+)`)

// ExecError reports a failed tool invocation.
type ExecError struct {
	Args   []string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}

	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// DefaultBinary returns the platform-specific ImageMagick command name.
func DefaultBinary() string {
	return binaryFor(runtime.GOOS)
}

func binaryFor(goos string) string {
	if goos == "windows" {
		return "magick.exe"
	}

	return "convert"
}

// Tool is a resolved ImageMagick executable.
type Tool struct {
	path    string
	timeout time.Duration
}

// Option configures a Tool.
type Option func(*Tool)

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) {
		t.timeout = d
	}
}

// Lookup resolves name on PATH. An empty name selects DefaultBinary.
func Lookup(name string, opts ...Option) (*Tool, error) {
	if name == "" {
		name = DefaultBinary()
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w (looked for %q: %v)", ErrNotFound, name, err)
	}

	t := &Tool{path: path}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Path returns the absolute path of the executable.
func (t *Tool) Path() string { return t.path }

// Version runs "<tool> --version" and parses the reported release.
func (t *Tool) Version(ctx context.Context) (*semver.Version, error) {
	out, err := t.run(ctx, "--version")
	if err != nil {
		return nil, err
	}

	return ParseVersion(out)
}

// ParseVersion extracts the release number from "--version" output.
func ParseVersion(output string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("unrecognized version output %q", firstLine(output))
	}

	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", m[1], err)
	}

	return v, nil
}

// Check verifies that the tool's version satisfies constraint.
func (t *Tool) Check(ctx context.Context, constraint string) error {
	if constraint == "" {
		constraint = DefaultConstraint
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	v, err := t.Version(ctx)
	if err != nil {
		return fmt.Errorf("querying imagemagick version: %w", err)
	}

	if !c.Check(v) {
		return fmt.Errorf("imagemagick %s does not satisfy %q", v, constraint)
	}

	return nil
}

// Flatten composites the first frame of src into a single raster at dst.
func (t *Tool) Flatten(ctx context.Context, src, dst string) error {
	_, err := t.run(ctx, FlattenArgs(src, dst)...)

	return err
}

// Resize renders the first frame of src into a size x size raster at dst.
func (t *Tool) Resize(ctx context.Context, src, dst string, size int) error {
	_, err := t.run(ctx, ResizeArgs(src, dst, size)...)

	return err
}

// FlattenArgs returns the argument list used by Flatten.
func FlattenArgs(src, dst string) []string {
	return []string{src + "[0]", dst}
}

// ResizeArgs returns the argument list used by Resize.
func ResizeArgs(src, dst string, size int) []string {
	geometry := fmt.Sprintf("%dx%d", size, size)

	return []string{
		src + "[0]",
		"-resize", geometry,
		"-density", strconv.Itoa(Density),
		"-quality", strconv.Itoa(Quality),
		dst,
	}
}

func (t *Tool) run(ctx context.Context, args ...string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var buf bytes.Buffer

	cmd := exec.CommandContext(ctx, t.path, args...) //nolint:gosec
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}

		return buf.String(), &ExecError{
			Args:   append([]string{t.path}, args...),
			Output: buf.String(),
			Err:    err,
		}
	}

	return buf.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
