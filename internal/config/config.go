// Package config holds process configuration, loaded from environment
// variables, and the URL-to-platform mapping used to route acquisitions.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment is "development" or "production".
	Environment string
	LogLevel    string

	// Home is the root directory for all local state.
	Home string
	// DBPath is the SQLite database file.
	DBPath string
	// MediaDir is the final destination root, organized by platform unless
	// FlatLayout is set.
	MediaDir      string
	ThumbnailDir  string
	ExportDir     string
	FlatLayout    bool

	// MaxConcurrent is the acquisition concurrency ceiling.
	MaxConcurrent int
	// StaleAfter is how long finished queue items are retained.
	StaleAfter time.Duration
	// JanitorSpec is the cron schedule for expiring stale queue items.
	JanitorSpec string
}

// Load loads configuration from environment variables.
func Load() *Config {
	home := getEnv("KELP_HOME", defaultHome())

	return &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Home:          home,
		DBPath:        getEnv("KELP_DB_PATH", filepath.Join(home, "library.db")),
		MediaDir:      getEnv("KELP_MEDIA_DIR", filepath.Join(home, "media")),
		ThumbnailDir:  getEnv("KELP_THUMBNAIL_DIR", filepath.Join(home, "thumbnails")),
		ExportDir:     getEnv("KELP_EXPORT_DIR", filepath.Join(home, "exports")),
		FlatLayout:    getEnvAsBool("KELP_FLAT_LAYOUT", false),
		MaxConcurrent: getEnvAsInt("KELP_MAX_CONCURRENT", 32),
		StaleAfter:    getEnvAsDuration("KELP_STALE_AFTER", 5*time.Minute),
		JanitorSpec:   getEnv("KELP_JANITOR_SPEC", "@every 1m"),
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kelp"
	}
	return filepath.Join(home, "kelp")
}

// OutputDir resolves the destination directory for a platform's media and
// creates it if missing.
func (c *Config) OutputDir(platform string) (string, error) {
	dir := c.MediaDir
	if !c.FlatLayout {
		dir = filepath.Join(dir, platform)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureDirectories creates all configured directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Home, c.MediaDir, c.ThumbnailDir, c.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// platformPatterns maps URL host fragments to platform names, checked in
// order.
var platformPatterns = []struct {
	name     string
	patterns []string
}{
	{"youtube", []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}},
	{"tiktok", []string{"tiktok.com", "vm.tiktok.com"}},
	{"instagram", []string{"instagram.com", "instagr.am"}},
	{"twitter", []string{"twitter.com", "x.com", "t.co"}},
	{"reddit", []string{"reddit.com", "redd.it"}},
	{"twitch", []string{"twitch.tv", "clips.twitch.tv"}},
}

// DetectPlatform derives the platform name from a URL. Patterns must end at
// a domain boundary so "t.co" does not match inside unrelated hostnames.
func DetectPlatform(url string) string {
	lower := strings.ToLower(url)
	for _, entry := range platformPatterns {
		for _, pattern := range entry.patterns {
			idx := strings.Index(lower, pattern)
			if idx < 0 {
				continue
			}
			end := idx + len(pattern)
			if end >= len(lower) || strings.ContainsRune("/:?#", rune(lower[end])) {
				return entry.name
			}
		}
	}
	return "other"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return defaultValue
}
