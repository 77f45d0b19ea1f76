package models

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the lifecycle state of a queue item.
type QueueStatus string

const (
	QueueStatusPending   QueueStatus = "pending"
	QueueStatusRunning   QueueStatus = "running"
	QueueStatusComplete  QueueStatus = "complete"
	QueueStatusFailed    QueueStatus = "failed"
	QueueStatusCancelled QueueStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s QueueStatus) Terminal() bool {
	switch s {
	case QueueStatusComplete, QueueStatusFailed, QueueStatusCancelled:
		return true
	}
	return false
}

// IngestOptions carries per-acquisition options through the queue into the
// pipeline.
type IngestOptions struct {
	// FormatID selects a specific extractor format.
	FormatID string `json:"format_id,omitempty"`
	// OutputDir overrides the platform-derived destination directory.
	OutputDir string `json:"output_dir,omitempty"`
	// SkipDuplicateCheck bypasses the URL pre-check (re-download flows).
	SkipDuplicateCheck bool `json:"skip_duplicate_check,omitempty"`
	// Tags and Collection are applied to the record on success.
	Tags       []string `json:"tags,omitempty"`
	Collection string   `json:"collection,omitempty"`
}

// QueueItem represents one in-flight or recently finished acquisition.
// It is process-local and never persisted. After admission only the owning
// worker mutates status and progress.
type QueueItem struct {
	ID       uuid.UUID   `json:"id"`
	URL      string      `json:"url"`
	Platform string      `json:"platform"`
	Status   QueueStatus `json:"status"`

	Options IngestOptions `json:"options"`

	// Progress
	BytesDownloaded int64    `json:"bytes_downloaded"`
	TotalBytes      *int64   `json:"total_bytes,omitempty"`
	Speed           float64  `json:"speed_bytes_per_sec,omitempty"`
	ETASeconds      *int     `json:"eta_seconds,omitempty"`
	PercentComplete float64  `json:"percent_complete"`

	// Result linkage
	RecordID     *int64 `json:"record_id,omitempty"`
	LocalPath    string `json:"local_path,omitempty"`
	Title        string `json:"title,omitempty"`
	Uploader     string `json:"uploader,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
