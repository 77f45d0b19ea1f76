// Package extractor defines the boundary to the external media extraction
// engine. The engine downloads one media file into a caller-owned directory
// and reports typed metadata; everything network- and site-specific lives
// behind this interface.
package extractor

import (
	"context"
	"time"
)

// Progress is one progress report from an in-flight extraction. Zero or
// more reports may arrive before the extraction terminates.
type Progress struct {
	BytesDownloaded int64
	// TotalBytes is 0 until the extractor learns the size.
	TotalBytes int64
	// Speed in bytes per second.
	Speed float64
	// ETASeconds is negative when unknown.
	ETASeconds int
	// Finished is set on the final report for a file.
	Finished bool
}

// Metadata is the typed projection of the extractor's source metadata.
// Optional fields are pointers; absent means the source did not report them.
type Metadata struct {
	SourceID    string
	Title       string
	Description string
	Uploader    string
	UploaderID  string
	UploadDate  *time.Time
	// DurationSeconds may be fractional; some sources report floats.
	DurationSeconds *float64
	Width           int
	Height          int
	FPS             float64
	Codec           string
	ViewCount       *int64
	LikeCount       *int64
	CommentCount    *int64
	ThumbnailURL    string
	WebpageURL      string

	// Raw is the extractor's full output, sanitized for storage. Never used
	// for identity or search.
	Raw map[string]interface{}
}

// Result is what a successful extraction returns. ReportedPath may be
// stale when the engine merges or transcodes outputs; callers must apply
// their own locate fallback against Outputs and the target directory.
type Result struct {
	ReportedPath string
	// Outputs lists every file the extraction produced, most reliable first.
	Outputs  []string
	Metadata Metadata
}

// Request describes one extraction.
type Request struct {
	URL string
	// TargetDir is the private directory the extractor must write into.
	TargetDir string
	// FormatID optionally pins a specific format.
	FormatID string
	// Progress, when non-nil, receives progress reports. The extractor
	// closes nothing; the channel remains caller-owned.
	Progress chan<- Progress
}

// Extractor turns a source URL into a local media file plus metadata.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}
