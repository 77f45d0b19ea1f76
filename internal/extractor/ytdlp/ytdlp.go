// Package ytdlp adapts the yt-dlp command line tool to the Extractor
// interface. It only maps process output into typed metadata; format
// negotiation and network behavior belong to yt-dlp itself.
package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelpmedia/kelp/internal/extractor"
)

const outputTemplate = "%(upload_date)s_%(uploader)s_%(title)s.%(ext)s"

// progressPrefix marks machine-readable progress lines on stdout.
const progressPrefix = "kelp-progress "

// Extractor shells out to yt-dlp.
type Extractor struct {
	// Binary is the yt-dlp executable, "yt-dlp" by default.
	Binary string
	logger *zap.Logger
}

// New creates a yt-dlp backed extractor.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{
		Binary: "yt-dlp",
		logger: logger.Named("ytdlp"),
	}
}

// Extract downloads the URL into req.TargetDir and parses the written
// info JSON into typed metadata.
func (e *Extractor) Extract(ctx context.Context, req extractor.Request) (*extractor.Result, error) {
	args := []string{
		req.URL,
		"--paths", req.TargetDir,
		"--output", outputTemplate,
		"--no-playlist",
		"--windows-filenames",
		"--write-info-json",
		"--newline",
		"--progress-template",
		"download:" + progressPrefix + "%(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.speed)s %(progress.eta)s",
	}
	if req.FormatID != "" {
		args = append(args, "--format", req.FormatID)
	} else {
		args = append(args, "--format", "bv*[ext=mp4]+ba[ext=m4a]/b", "--merge-output-format", "mp4")
	}

	e.logger.Debug("invoking extractor",
		zap.String("url", req.URL),
		zap.String("target_dir", req.TargetDir))

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", e.Binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, progressPrefix) {
			continue
		}
		if req.Progress == nil {
			continue
		}
		if p, ok := parseProgress(strings.TrimPrefix(line, progressPrefix)); ok {
			req.Progress <- p
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s exited: %w", e.Binary, err)
	}

	info, infoPath, err := readInfoJSON(req.TargetDir)
	if err != nil {
		return nil, err
	}
	// The info sidecar is working data, not an output.
	os.Remove(infoPath)

	result := &extractor.Result{Metadata: metadataFromInfo(info)}
	if fp, ok := info["filepath"].(string); ok {
		result.ReportedPath = fp
	}
	if requested, ok := info["requested_downloads"].([]interface{}); ok {
		for _, rd := range requested {
			m, ok := rd.(map[string]interface{})
			if !ok {
				continue
			}
			if fp, ok := m["filepath"].(string); ok && fp != "" {
				result.Outputs = append(result.Outputs, fp)
			} else if fn, ok := m["filename"].(string); ok && fn != "" {
				result.Outputs = append(result.Outputs, fn)
			}
		}
	}
	if result.ReportedPath == "" && len(result.Outputs) > 0 {
		result.ReportedPath = result.Outputs[0]
	}

	return result, nil
}

func parseProgress(fields string) (extractor.Progress, bool) {
	parts := strings.Fields(fields)
	if len(parts) < 4 {
		return extractor.Progress{}, false
	}
	num := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	eta := -1
	if v, err := strconv.Atoi(parts[3]); err == nil {
		eta = v
	}
	return extractor.Progress{
		BytesDownloaded: int64(num(parts[0])),
		TotalBytes:      int64(num(parts[1])),
		Speed:           num(parts[2]),
		ETASeconds:      eta,
	}, true
}

func readInfoJSON(dir string) (map[string]interface{}, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.info.json"))
	if err != nil || len(matches) == 0 {
		return nil, "", fmt.Errorf("no info json written in %s", dir)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, "", err
	}
	var info map[string]interface{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, "", fmt.Errorf("parsing info json: %w", err)
	}
	return info, matches[0], nil
}

func metadataFromInfo(info map[string]interface{}) extractor.Metadata {
	md := extractor.Metadata{
		SourceID:     str(info, "id"),
		Title:        str(info, "title"),
		Description:  str(info, "description"),
		Uploader:     str(info, "uploader"),
		UploaderID:   str(info, "uploader_id"),
		Codec:        str(info, "vcodec"),
		ThumbnailURL: str(info, "thumbnail"),
		WebpageURL:   str(info, "webpage_url"),
		Width:        int(fl(info, "width")),
		Height:       int(fl(info, "height")),
		FPS:          fl(info, "fps"),
		Raw:          sanitizeInfo(info),
	}
	if v, ok := info["duration"].(float64); ok {
		md.DurationSeconds = &v
	}
	md.ViewCount = intPtr(info, "view_count")
	md.LikeCount = intPtr(info, "like_count")
	md.CommentCount = intPtr(info, "comment_count")
	if d := str(info, "upload_date"); d != "" {
		if t, err := time.Parse("20060102", d); err == nil {
			md.UploadDate = &t
		}
	}
	return md
}

func str(info map[string]interface{}, key string) string {
	v, _ := info[key].(string)
	return v
}

func fl(info map[string]interface{}, key string) float64 {
	v, _ := info[key].(float64)
	return v
}

func intPtr(info map[string]interface{}, key string) *int64 {
	if v, ok := info[key].(float64); ok {
		n := int64(v)
		return &n
	}
	return nil
}

// sanitizeInfo drops oversized and internal keys from the raw info dict
// before it is stored.
var excludedInfoKeys = map[string]struct{}{
	"formats":             {},
	"thumbnails":          {},
	"subtitles":           {},
	"automatic_captions":  {},
	"requested_downloads": {},
	"requested_formats":   {},
	"http_headers":        {},
}

func sanitizeInfo(info map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(info))
	for key, value := range info {
		if _, excluded := excludedInfoKeys[key]; excluded {
			continue
		}
		if strings.HasPrefix(key, "_") {
			continue
		}
		if _, err := json.Marshal(value); err != nil {
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
