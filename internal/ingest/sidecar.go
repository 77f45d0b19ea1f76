package ingest

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelpmedia/kelp/pkg/fileutil"
	"github.com/kelpmedia/kelp/pkg/models"
)

// nfoMovie is the Kodi/Plex-compatible sidecar shape. Media servers match
// it against the adjacent media file.
type nfoMovie struct {
	XMLName   xml.Name     `xml:"movie"`
	Title     string       `xml:"title"`
	Plot      string       `xml:"plot,omitempty"`
	Studio    string       `xml:"studio,omitempty"`
	Year      int          `xml:"year,omitempty"`
	Premiered string       `xml:"premiered,omitempty"`
	Runtime   int          `xml:"runtime,omitempty"`
	UniqueID  nfoUniqueID  `xml:"uniqueid"`
	Tags      []string     `xml:"tag,omitempty"`
}

type nfoUniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

// WriteNFO writes a sidecar metadata file for the record.
func WriteNFO(record *models.MediaRecord, path string) error {
	movie := nfoMovie{
		Title: record.Title,
		Plot:  record.Description,
		UniqueID: nfoUniqueID{
			Type:    "kelp",
			Default: true,
			Value:   record.SourceURL,
		},
	}
	if record.Uploader != "" {
		movie.Studio = fmt.Sprintf("%s - %s", record.Platform, record.Uploader)
		movie.Tags = append(movie.Tags, record.Uploader)
	}
	if record.UploadDate != nil {
		movie.Year = record.UploadDate.Year()
		movie.Premiered = record.UploadDate.Format("2006-01-02")
	}
	if record.Duration != nil {
		movie.Runtime = *record.Duration / 60
	}
	movie.Tags = append(movie.Tags, record.Tags...)

	data, err := xml.MarshalIndent(movie, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}

// ExportJSON writes the record to the export directory for downstream
// analytics. Filename: <platform>_<sourceID>_<timestamp>.json.
func ExportJSON(record *models.MediaRecord, exportDir string) error {
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return err
	}
	filename := fmt.Sprintf("%s_%s_%s.json",
		record.Platform,
		fileutil.SanitizeFilename(record.SourceID, 50),
		time.Now().Format("20060102_150405"))

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(exportDir, filename), data, 0o644)
}
