package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kelpmedia/kelp/internal/extractor"
)

// candidateExtensions are the output extensions the extractor is expected
// to produce, in preference order.
var candidateExtensions = []string{"mp4", "webm", "mkv"}

// locateStrategy tries one way of resolving the extractor's real output
// file. Returns "" when it cannot.
type locateStrategy struct {
	name string
	fn   func(res *extractor.Result, dir string) string
}

// The extractor's primary return value may be stale when outputs are merged
// or transcoded, so resolution is an ordered fallback chain rather than a
// single lookup.
var locateStrategies = []locateStrategy{
	{"reported-path", byReportedPath},
	{"produced-outputs", byProducedOutputs},
	{"metadata-match", byMetadataMatch},
	{"newest-candidate", byNewestCandidate},
}

// LocateOutput resolves the file an extraction actually produced in dir.
// Returns the strategy name that found it alongside the path.
func LocateOutput(res *extractor.Result, dir string) (path, strategy string, ok bool) {
	for _, s := range locateStrategies {
		if p := s.fn(res, dir); p != "" {
			return p, s.name, true
		}
	}
	return "", "", false
}

func byReportedPath(res *extractor.Result, dir string) string {
	if res.ReportedPath == "" {
		return ""
	}
	if _, err := os.Stat(res.ReportedPath); err != nil {
		return ""
	}
	return res.ReportedPath
}

func byProducedOutputs(res *extractor.Result, dir string) string {
	for _, out := range res.Outputs {
		if _, err := os.Stat(out); err == nil {
			return out
		}
	}
	return ""
}

// byMetadataMatch scans candidate files for names containing known metadata
// fragments: the upload date together with the uploader, or the first 20
// characters of the title.
func byMetadataMatch(res *extractor.Result, dir string) string {
	md := res.Metadata
	uploadDate := ""
	if md.UploadDate != nil {
		uploadDate = md.UploadDate.Format("20060102")
	}
	titlePrefix := md.Title
	if len(titlePrefix) > 20 {
		titlePrefix = titlePrefix[:20]
	}

	for _, ext := range candidateExtensions {
		matches, _ := filepath.Glob(filepath.Join(dir, "*."+ext))
		for _, match := range matches {
			name := filepath.Base(match)
			dateAndUploader := uploadDate != "" && md.Uploader != "" &&
				strings.Contains(name, uploadDate) && strings.Contains(name, md.Uploader)
			if dateAndUploader || (titlePrefix != "" && strings.Contains(name, titlePrefix)) {
				return match
			}
		}
	}
	return ""
}

// byNewestCandidate falls back to the most recently modified file of an
// expected extension.
func byNewestCandidate(res *extractor.Result, dir string) string {
	var newest string
	var newestMod int64
	for _, ext := range candidateExtensions {
		matches, _ := filepath.Glob(filepath.Join(dir, "*."+ext))
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
				newest = match
				newestMod = mod
			}
		}
	}
	return newest
}
