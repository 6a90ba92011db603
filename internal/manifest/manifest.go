// Package manifest describes the asset categories a build processes.
//
// A manifest is an ordered list of categories. Each category names a path
// under the source root and how it is turned into build output. The default
// manifest matches the fixed layout of a game asset tree:
//
//	icon/icon.psd   -> icon/icon@<size>.png
//	res/textures    -> res/textures/**.png
//	res/fonts       -> copied
//	res/data        -> copied
package manifest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/assetbuild/internal/thumbnail"
)

// Kind selects how a category is built.
type Kind string

// Supported category kinds.
const (
	KindThumbnail Kind = "thumbnail"
	KindConvert   Kind = "convert"
	KindCopy      Kind = "copy"
)

// Default extensions for convert and thumbnail categories.
const (
	DefaultSourceExt = ".psd"
	DefaultTargetExt = thumbnail.DefaultExt
)

// DefaultSizes are the thumbnail edge lengths, largest first.
var DefaultSizes = thumbnail.DefaultSizes

// Category is one build step.
type Category struct {
	// Name labels the step in reports.
	Name string `yaml:"name"`

	// Source is a slash-separated path relative to the source root. It is a
	// file for thumbnail categories and a directory otherwise.
	Source string `yaml:"source"`

	Kind Kind `yaml:"kind"`

	// Sizes applies to thumbnail categories.
	Sizes []int `yaml:"sizes,omitempty"`

	// SourceExt selects convertible files in convert categories.
	SourceExt string `yaml:"sourceExt,omitempty"`

	// TargetExt is the extension of converted or rendered outputs.
	TargetExt string `yaml:"targetExt,omitempty"`
}

// Manifest is the ordered category table.
type Manifest struct {
	Categories []Category `yaml:"categories"`
}

// Default returns the built-in table: icon, textures, fonts, data.
func Default() *Manifest {
	return &Manifest{
		Categories: []Category{
			{
				Name:      "icon",
				Source:    "icon/icon.psd",
				Kind:      KindThumbnail,
				Sizes:     append([]int(nil), DefaultSizes...),
				TargetExt: DefaultTargetExt,
			},
			{
				Name:      "textures",
				Source:    "res/textures",
				Kind:      KindConvert,
				SourceExt: DefaultSourceExt,
				TargetExt: DefaultTargetExt,
			},
			{Name: "fonts", Source: "res/fonts", Kind: KindCopy},
			{Name: "data", Source: "res/data", Kind: KindCopy},
		},
	}
}

// Load reads a YAML manifest from path, fills defaults and validates it.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML manifest, fills defaults and validates it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)

	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// New builds a manifest from categories, filling defaults like Parse does.
func New(categories ...Category) (*Manifest, error) {
	m := &Manifest{Categories: append([]Category(nil), categories...)}
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manifest) applyDefaults() {
	for i := range m.Categories {
		c := &m.Categories[i]

		switch c.Kind {
		case KindThumbnail:
			if len(c.Sizes) == 0 {
				c.Sizes = append([]int(nil), DefaultSizes...)
			}

			if c.TargetExt == "" {
				c.TargetExt = DefaultTargetExt
			}
		case KindConvert:
			if c.SourceExt == "" {
				c.SourceExt = DefaultSourceExt
			}

			if c.TargetExt == "" {
				c.TargetExt = DefaultTargetExt
			}
		}
	}
}

// Validate checks that every category is well formed and that no two
// categories can produce the same output path.
func (m *Manifest) Validate() error {
	if len(m.Categories) == 0 {
		return fmt.Errorf("manifest has no categories")
	}

	names := make(map[string]bool, len(m.Categories))
	sources := make(map[string]string, len(m.Categories))
	stems := make(map[string]string)

	for i, c := range m.Categories {
		if c.Name == "" {
			return fmt.Errorf("categories[%d]: name is required", i)
		}

		if names[c.Name] {
			return fmt.Errorf("categories[%d]: duplicate name %q", i, c.Name)
		}

		names[c.Name] = true

		if c.Source == "" {
			return fmt.Errorf("category %q: source is required", c.Name)
		}

		clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(c.Source)))
		if filepath.IsAbs(c.Source) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("category %q: source %q must be relative to the source root", c.Name, c.Source)
		}

		for other, otherName := range sources {
			if overlaps(clean, other) {
				return fmt.Errorf("category %q: source %q overlaps category %q", c.Name, c.Source, otherName)
			}
		}

		sources[clean] = c.Name

		if c.Kind == KindThumbnail {
			stem := strings.TrimSuffix(clean, path.Ext(clean))
			if otherName, dup := stems[stem]; dup {
				return fmt.Errorf("category %q: thumbnails of %q collide with category %q", c.Name, c.Source, otherName)
			}

			stems[stem] = c.Name
		}

		if err := c.validateKind(); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}

	return nil
}

func (c Category) validateKind() error {
	switch c.Kind {
	case KindThumbnail:
		if !strings.HasPrefix(c.TargetExt, ".") {
			return fmt.Errorf("targetExt must start with a dot (got %q)", c.TargetExt)
		}

		seen := make(map[int]bool, len(c.Sizes))

		for _, s := range c.Sizes {
			if s <= 0 {
				return fmt.Errorf("invalid size %d: must be positive", s)
			}

			if seen[s] {
				return fmt.Errorf("duplicate size %d", s)
			}

			seen[s] = true
		}
	case KindConvert:
		if !strings.HasPrefix(c.SourceExt, ".") || !strings.HasPrefix(c.TargetExt, ".") {
			return fmt.Errorf("extensions must start with a dot (got %q, %q)", c.SourceExt, c.TargetExt)
		}

		if strings.EqualFold(c.SourceExt, c.TargetExt) {
			return fmt.Errorf("sourceExt and targetExt must differ (both %q)", c.SourceExt)
		}
	case KindCopy:
		// nothing to check
	default:
		return fmt.Errorf("unknown kind %q (must be thumbnail, convert, or copy)", c.Kind)
	}

	return nil
}

// overlaps reports whether one slash path equals or contains the other.
func overlaps(a, b string) bool {
	if a == b || a == "." || b == "." {
		return true
	}

	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// Names returns the category names in build order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Categories))
	for i, c := range m.Categories {
		names[i] = c.Name
	}

	return names
}
