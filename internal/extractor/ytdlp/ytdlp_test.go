package ytdlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgress(t *testing.T) {
	p, ok := parseProgress("1024 4096 512.5 6")
	require.True(t, ok)
	assert.Equal(t, int64(1024), p.BytesDownloaded)
	assert.Equal(t, int64(4096), p.TotalBytes)
	assert.Equal(t, 512.5, p.Speed)
	assert.Equal(t, 6, p.ETASeconds)
}

func TestParseProgressUnknownFields(t *testing.T) {
	// yt-dlp renders unknown values as the literal string NA.
	p, ok := parseProgress("1024 NA NA NA")
	require.True(t, ok)
	assert.Equal(t, int64(1024), p.BytesDownloaded)
	assert.Zero(t, p.TotalBytes)
	assert.Equal(t, -1, p.ETASeconds)

	_, ok = parseProgress("1024")
	assert.False(t, ok)
}

func TestMetadataFromInfo(t *testing.T) {
	info := map[string]interface{}{
		"id":          "abc123",
		"title":       "A Video",
		"uploader":    "someone",
		"duration":    95.4,
		"width":       1920.0,
		"height":      1080.0,
		"fps":         29.97,
		"view_count":  12345.0,
		"upload_date": "20240115",
		"thumbnail":   "https://cdn.example.com/t.jpg",
	}

	md := metadataFromInfo(info)
	assert.Equal(t, "abc123", md.SourceID)
	assert.Equal(t, "A Video", md.Title)
	assert.Equal(t, "someone", md.Uploader)
	require.NotNil(t, md.DurationSeconds)
	assert.Equal(t, 95.4, *md.DurationSeconds)
	assert.Equal(t, 1920, md.Width)
	assert.Equal(t, 1080, md.Height)
	require.NotNil(t, md.ViewCount)
	assert.Equal(t, int64(12345), *md.ViewCount)
	require.NotNil(t, md.UploadDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *md.UploadDate)
	assert.Nil(t, md.LikeCount)
}

func TestSanitizeInfoDropsNoise(t *testing.T) {
	info := map[string]interface{}{
		"id":       "abc",
		"formats":  []interface{}{"huge"},
		"_private": "internal",
		"title":    "keep me",
	}

	sanitized := sanitizeInfo(info)
	assert.Equal(t, "abc", sanitized["id"])
	assert.Equal(t, "keep me", sanitized["title"])
	assert.NotContains(t, sanitized, "formats")
	assert.NotContains(t, sanitized, "_private")
}
