package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/assetbuild/internal/version"
)

func TestVersionCommand_Human(t *testing.T) {
	stdout, _, err := executeCommand("version")
	require.NoError(t, err)

	assert.Contains(t, stdout, "assetbuild")
	assert.NotContains(t, stdout, "imagemagick")
}

func TestVersionCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand("version", "--json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Platform)
	assert.Nil(t, info.Magick)
}

func TestVersionCommand_ToolsMissing(t *testing.T) {
	stdout, _, err := executeCommand("version", "--tools", "--magick", "/nonexistent/convert")
	require.NoError(t, err)

	assert.Contains(t, stdout, "imagemagick: ")
	assert.Contains(t, stdout, "not found")
}

func TestVersionCommand_ToolsFake(t *testing.T) {
	tool := writeFakeMagick(t)

	stdout, _, err := executeCommand("version", "--tools", "--json", "--magick", tool)
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	require.NotNil(t, info.Magick)
	assert.Equal(t, "7.1.1", info.Magick.Version)
	assert.Equal(t, tool, info.Magick.Path)
}

func TestVersionCommand_NoArgs(t *testing.T) {
	_, _, err := executeCommand("version", "extra")
	require.Error(t, err)
}
