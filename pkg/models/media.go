package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores an ordered list of strings as a JSON text column.
// Duplicates are allowed; ordering is preserved.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// RawMap stores an opaque metadata blob as a JSON text column. It is
// retained for forward compatibility and never used for identity or search.
type RawMap map[string]interface{}

// Value implements driver.Valuer.
func (m RawMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *RawMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RawMap", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, (*map[string]interface{})(m))
}

// MediaRecord is the authoritative entry for one successfully ingested item.
//
// SourceURL and (Platform, SourceID) are each unique; violating either is a
// duplicate. LocalPath, once set, points to a file that was moved into place
// atomically.
type MediaRecord struct {
	ID int64 `json:"id" gorm:"primaryKey;autoIncrement"`

	// Source identity
	SourceURL string `json:"source_url" gorm:"uniqueIndex;not null"`
	Platform  string `json:"platform" gorm:"not null;index;uniqueIndex:idx_platform_source"`
	SourceID  string `json:"source_id" gorm:"not null;uniqueIndex:idx_platform_source"`

	// Content metadata
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	Uploader    string     `json:"uploader" gorm:"not null;index"`
	UploaderID  string     `json:"uploader_id,omitempty"`
	UploadDate  *time.Time `json:"upload_date,omitempty"`
	Duration    *int       `json:"duration_seconds,omitempty" gorm:"column:duration_seconds"`

	// Engagement metrics
	ViewCount    *int64 `json:"view_count,omitempty"`
	LikeCount    *int64 `json:"like_count,omitempty"`
	CommentCount *int64 `json:"comment_count,omitempty"`

	// Technical metadata
	Resolution  string  `json:"resolution,omitempty"`
	FPS         float64 `json:"fps,omitempty"`
	Codec       string  `json:"codec,omitempty"`
	FileSize    int64   `json:"file_size_bytes,omitempty" gorm:"column:file_size_bytes"`
	ContentHash string  `json:"content_hash" gorm:"index"`

	// Local storage
	LocalPath     string    `json:"local_path,omitempty"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	IngestedAt    time.Time `json:"ingested_at" gorm:"index"`

	// User metadata
	Tags       StringList `json:"tags" gorm:"type:text;default:'[]'"`
	Rating     *int       `json:"rating,omitempty" gorm:"check:rating IS NULL OR (rating >= 1 AND rating <= 5)"`
	Notes      string     `json:"notes,omitempty" gorm:"type:text"`
	Collection string     `json:"collection,omitempty" gorm:"index"`

	// Raw extractor output, sanitized for storage
	RawMetadata RawMap `json:"raw_metadata,omitempty" gorm:"type:text"`
}

// TableName customization.
func (MediaRecord) TableName() string {
	return "media_records"
}
