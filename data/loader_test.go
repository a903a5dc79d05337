package data

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEmbedding(t *testing.T) {
	_, err := dataFilesRoot.ReadFile("data-files/fixtures/report.js")
	assert.NoError(t, err)

	files, err := dataFilesRoot.ReadDir("data-files/routes")
	assert.NoError(t, err)
	assert.NotEqual(t, 0, len(files))
}

func TestFixtureFiles(t *testing.T) {
	data, err := fs.ReadFile(FixtureFiles(), "report.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "function report")
}

func TestLoadDataFileWithoutParameters(t *testing.T) {
	sources, err := LoadDataFile("routes/redirects.yaml")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "routes/redirects.yaml", sources[0].FilePath)
	assert.Equal(t, "redirects.yaml", sources[0].BaseName)
	assert.Equal(t, "", sources[0].ParamsString())
}

func TestLoadDataFileWithParameters(t *testing.T) {
	sources, err := LoadDataFile("routes/font-fallback.yaml")
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "(generic=serif)", sources[0].ParamsString())
	assert.Contains(t, string(sources[0].Data), "32px serif")
	assert.Contains(t, string(sources[2].Data), "32px monospace")
}

func TestLoadDataFileNotFound(t *testing.T) {
	_, err := LoadDataFile("routes/nope.yaml")
	assert.Error(t, err)
}

func TestLoadAllDataFiles(t *testing.T) {
	sources, err := LoadAllDataFiles("routes")
	require.NoError(t, err)
	files, err := dataFilesRoot.ReadDir("data-files/routes")
	require.NoError(t, err)
	assert.Greater(t, len(sources), len(files)-1) // font-fallback has several variants
}
