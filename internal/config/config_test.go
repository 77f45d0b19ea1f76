package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelpmedia/kelp/internal/config"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "youtube"},
		{"https://youtu.be/abc", "youtube"},
		{"https://YOUTUBE.com/watch?v=abc", "youtube"},
		{"https://vm.tiktok.com/xyz", "tiktok"},
		{"https://x.com/user/status/1", "twitter"},
		{"https://t.co/short", "twitter"},
		{"https://redd.it/abc", "reddit"},
		{"https://clips.twitch.tv/clip", "twitch"},
		{"https://example.com/video", "other"},
		// "t.co" appears inside this hostname but not at a domain boundary.
		{"https://fnt.community/page", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, config.DetectPlatform(tt.url), tt.url)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KELP_HOME", "/srv/kelp")

	cfg := config.Load()
	assert.Equal(t, "/srv/kelp", cfg.Home)
	assert.Equal(t, filepath.Join("/srv/kelp", "library.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/srv/kelp", "media"), cfg.MediaDir)
	assert.Equal(t, 32, cfg.MaxConcurrent)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	assert.False(t, cfg.FlatLayout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KELP_MAX_CONCURRENT", "4")
	t.Setenv("KELP_STALE_AFTER", "30s")
	t.Setenv("KELP_FLAT_LAYOUT", "true")

	cfg := config.Load()
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.StaleAfter)
	assert.True(t, cfg.FlatLayout)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("KELP_MAX_CONCURRENT", "not-a-number")
	t.Setenv("KELP_STALE_AFTER", "soon")

	cfg := config.Load()
	assert.Equal(t, 32, cfg.MaxConcurrent)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
}

func TestOutputDir(t *testing.T) {
	root := t.TempDir()

	cfg := &config.Config{MediaDir: root}
	dir, err := cfg.OutputDir("youtube")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "youtube"), dir)
	assert.DirExists(t, dir)

	cfg.FlatLayout = true
	dir, err = cfg.OutputDir("youtube")
	require.NoError(t, err)
	assert.Equal(t, root, dir)
}
