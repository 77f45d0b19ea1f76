package ingest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelpmedia/kelp/internal/ingest"
	"github.com/kelpmedia/kelp/pkg/models"
)

func TestWriteNFO(t *testing.T) {
	uploadDate := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	duration := 185
	record := &models.MediaRecord{
		SourceURL:  "https://youtube.com/watch?v=abc",
		Platform:   "youtube",
		Title:      "Great Lecture",
		Uploader:   "prof",
		UploadDate: &uploadDate,
		Duration:   &duration,
		Tags:       models.StringList{"math"},
	}

	path := filepath.Join(t.TempDir(), "great_lecture.nfo")
	require.NoError(t, ingest.WriteNFO(record, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "<title>Great Lecture</title>")
	assert.Contains(t, content, "<studio>youtube - prof</studio>")
	assert.Contains(t, content, "<year>2024</year>")
	assert.Contains(t, content, "<premiered>2024-03-02</premiered>")
	assert.Contains(t, content, "<runtime>3</runtime>")
	assert.Contains(t, content, "https://youtube.com/watch?v=abc")
	assert.Contains(t, content, "<tag>math</tag>")
}

func TestExportJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	record := &models.MediaRecord{
		SourceURL: "https://youtube.com/watch?v=abc",
		Platform:  "youtube",
		SourceID:  "abc",
		Title:     "Great Lecture",
	}

	require.NoError(t, ingest.ExportJSON(record, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "youtube_abc_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Great Lecture")
}
