package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())
	assert.Equal(t, []string{"icon", "textures", "fonts", "data"}, m.Names())

	icon := m.Categories[0]
	assert.Equal(t, KindThumbnail, icon.Kind)
	assert.Equal(t, "icon/icon.psd", icon.Source)
	assert.Equal(t, []int{512, 256, 128, 64, 32, 16}, icon.Sizes)

	textures := m.Categories[1]
	assert.Equal(t, KindConvert, textures.Kind)
	assert.Equal(t, ".psd", textures.SourceExt)
	assert.Equal(t, ".png", textures.TargetExt)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Categories[0].Sizes[0] = 1

	assert.Equal(t, 512, Default().Categories[0].Sizes[0])
}

func TestParse_FillsDefaults(t *testing.T) {
	m, err := Parse([]byte(`
categories:
  - name: logo
    source: art/logo.psd
    kind: thumbnail
  - name: sprites
    source: art/sprites
    kind: convert
  - name: sounds
    source: audio
    kind: copy
`))
	require.NoError(t, err)
	require.Len(t, m.Categories, 3)

	assert.Equal(t, DefaultSizes, m.Categories[0].Sizes)
	assert.Equal(t, ".png", m.Categories[0].TargetExt)
	assert.Equal(t, ".psd", m.Categories[1].SourceExt)
	assert.Equal(t, ".png", m.Categories[1].TargetExt)
}

func TestParse_CustomValues(t *testing.T) {
	m, err := Parse([]byte(`
categories:
  - name: icon
    source: icon/icon.psd
    kind: thumbnail
    sizes: [64, 32]
  - name: textures
    source: res/textures
    kind: convert
    sourceExt: .xcf
    targetExt: .webp
`))
	require.NoError(t, err)
	assert.Equal(t, []int{64, 32}, m.Categories[0].Sizes)
	assert.Equal(t, ".xcf", m.Categories[1].SourceExt)
	assert.Equal(t, ".webp", m.Categories[1].TargetExt)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "categories: []\n", "no categories"},
		{"unknown field", "categories:\n  - name: a\n    source: a\n    kind: copy\n    colour: red\n", "parsing manifest"},
		{"missing name", "categories:\n  - source: a\n    kind: copy\n", "name is required"},
		{"duplicate name", "categories:\n  - {name: a, source: a, kind: copy}\n  - {name: a, source: b, kind: copy}\n", "duplicate name"},
		{"missing source", "categories:\n  - {name: a, kind: copy}\n", "source is required"},
		{"absolute source", "categories:\n  - {name: a, source: /etc, kind: copy}\n", "must be relative"},
		{"escaping source", "categories:\n  - {name: a, source: ../x, kind: copy}\n", "must be relative"},
		{"same source", "categories:\n  - {name: a, source: res, kind: copy}\n  - {name: b, source: res/, kind: copy}\n", "overlaps"},
		{"nested source", "categories:\n  - {name: a, source: res, kind: copy}\n  - {name: b, source: res/fonts, kind: copy}\n", "overlaps"},
		{"unknown kind", "categories:\n  - {name: a, source: a, kind: zip}\n", "unknown kind"},
		{"bad size", "categories:\n  - {name: a, source: a.psd, kind: thumbnail, sizes: [0]}\n", "must be positive"},
		{"duplicate size", "categories:\n  - {name: a, source: a.psd, kind: thumbnail, sizes: [16, 16]}\n", "duplicate size"},
		{"same ext", "categories:\n  - {name: a, source: a, kind: convert, sourceExt: .png, targetExt: .PNG}\n", "must differ"},
		{"no dot", "categories:\n  - {name: a, source: a, kind: convert, sourceExt: psd}\n", "must start with a dot"},
		{"thumbnail ext without dot", "categories:\n  - {name: a, source: a.psd, kind: thumbnail, targetExt: png}\n", "targetExt must start with a dot"},
		{"colliding thumbnails", "categories:\n  - {name: a, source: icon/icon.psd, kind: thumbnail}\n  - {name: b, source: icon/icon.tga, kind: thumbnail}\n", "collide with category \"a\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "assets.yaml")
	require.NoError(t, os.WriteFile(p, []byte("categories:\n  - {name: data, source: res/data, kind: copy}\n"), 0o600))

	m, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, m.Names())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading manifest")
}

func TestNew_ThumbnailsSharingADirectory(t *testing.T) {
	m, err := New(
		Category{Name: "logo", Source: "icon/logo.psd", Kind: KindThumbnail},
		Category{Name: "app", Source: "icon/app.psd", Kind: KindThumbnail},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"logo", "app"}, m.Names())

	_, err = New(
		Category{Name: "a", Source: "icon/icon.psd", Kind: KindThumbnail},
		Category{Name: "b", Source: "icon/icon.tga", Kind: KindThumbnail},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collide")
}

func TestNew(t *testing.T) {
	m, err := New(
		Category{Name: "logo", Source: "art/logo.psd", Kind: KindThumbnail},
		Category{Name: "sprites", Source: "art/sprites", Kind: KindConvert},
	)
	require.NoError(t, err)
	assert.Equal(t, DefaultSizes, m.Categories[0].Sizes)
	assert.Equal(t, DefaultSourceExt, m.Categories[1].SourceExt)
	assert.Equal(t, DefaultTargetExt, m.Categories[1].TargetExt)

	_, err = New(
		Category{Name: "a", Source: "x", Kind: KindCopy},
		Category{Name: "a", Source: "y", Kind: KindCopy},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}
