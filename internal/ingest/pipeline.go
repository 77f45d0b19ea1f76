// Package ingest turns one source URL into one persisted media record, or
// fails cleanly with no partial state.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelpmedia/kelp/internal/config"
	"github.com/kelpmedia/kelp/internal/extractor"
	"github.com/kelpmedia/kelp/internal/library"
	"github.com/kelpmedia/kelp/pkg/errors"
	"github.com/kelpmedia/kelp/pkg/fileutil"
	"github.com/kelpmedia/kelp/pkg/models"
)

// Pipeline orchestrates extraction, deduplication, atomic placement, and
// persistence for one acquisition at a time. A single Pipeline is shared by
// all concurrent runs; each run owns its private temp directory.
type Pipeline struct {
	store      *library.Store
	extractor  extractor.Extractor
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a pipeline.
func New(store *library.Store, ext extractor.Extractor, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		extractor:  ext,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("ingest"),
	}
}

// Ingest runs the full pipeline for url. Progress reports from the
// extractor are forwarded to progress when non-nil. On any failure no file
// remains at the final destination and the temp directory is removed; a
// cancelled run behaves the same way.
func (p *Pipeline) Ingest(ctx context.Context, url string, opts models.IngestOptions, progress chan<- extractor.Progress) (*models.MediaRecord, error) {
	log := p.logger.With(zap.String("url", url))

	// Pre-check by URL so known duplicates never cost bandwidth.
	if !opts.SkipDuplicateCheck {
		existing, err := p.store.GetByURL(ctx, url)
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			return nil, errors.Duplicate(errors.CollisionURL, existing.ID,
				fmt.Sprintf("url already in library: %s", url))
		}
	}

	platform := config.DetectPlatform(url)
	destDir := opts.OutputDir
	if destDir == "" {
		var err error
		destDir, err = p.cfg.OutputDir(platform)
		if err != nil {
			return nil, errors.IO("resolving destination", err)
		}
	} else if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errors.IO("resolving destination", err)
	}

	// Everything downloads into a run-private temp directory so nothing
	// scanning the destination tree can observe a partial file. Removed on
	// every exit path.
	tempDir, err := os.MkdirTemp("", "kelp-ingest-")
	if err != nil {
		return nil, errors.IO("creating temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	result, err := p.extractor.Extract(ctx, extractor.Request{
		URL:       url,
		TargetDir: tempDir,
		FormatID:  opts.FormatID,
		Progress:  progress,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Extraction("extractor failed", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	srcPath, strategy, ok := LocateOutput(result, tempDir)
	if !ok {
		return nil, errors.IO("locating output",
			fmt.Errorf("no produced file found in %s", tempDir))
	}
	log.Debug("output located",
		zap.String("path", srcPath),
		zap.String("strategy", strategy))

	finalPath := filepath.Join(destDir, filepath.Base(srcPath))
	if err := fileutil.MoveFile(srcPath, finalPath); err != nil {
		return nil, errors.IO("placing file", err)
	}
	// From here any failure must take the placed file back out.
	committed := false
	defer func() {
		if !committed {
			os.Remove(finalPath)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := fileutil.HashFile(finalPath)
	if err != nil {
		return nil, errors.IO("hashing file", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Post-check by content hash catches same-content-different-URL
	// duplicates the URL pre-check cannot.
	exists, err := p.store.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Duplicate(errors.CollisionHash, 0,
			fmt.Sprintf("file content already in library (hash: %.12s...)", hash))
	}

	// Best-effort: thumbnail cache. Never fails the run.
	thumbnailPath := ""
	if path, err := p.cacheThumbnail(ctx, platform, result.Metadata); err != nil {
		log.Warn("thumbnail cache failed", zap.Error(err))
	} else {
		thumbnailPath = path
	}

	record := buildRecord(url, platform, finalPath, hash, thumbnailPath, result.Metadata, opts)
	if err := p.store.Insert(ctx, record); err != nil {
		// A racing ingest of the same item may win at the constraint; the
		// loser removes its placed file, same as the hash post-check.
		return nil, err
	}
	committed = true

	// Best-effort: sidecar metadata next to the file plus a JSON export.
	if err := WriteNFO(record, withSuffix(finalPath, ".nfo")); err != nil {
		log.Warn("nfo sidecar failed", zap.Error(err))
	}
	if err := ExportJSON(record, p.cfg.ExportDir); err != nil {
		log.Warn("json export failed", zap.Error(err))
	}

	log.Info("ingest complete",
		zap.Int64("record_id", record.ID),
		zap.String("platform", platform),
		zap.Int64("bytes", record.FileSize))

	return record, nil
}

// buildRecord maps extractor metadata onto a media record, applying the
// documented fallbacks for missing fields.
func buildRecord(url, platform, localPath, hash, thumbnailPath string, md extractor.Metadata, opts models.IngestOptions) *models.MediaRecord {
	uploader := md.Uploader
	switch strings.ToLower(uploader) {
	case "", "unknown", "null", "none":
		uploader = "unknown"
	}

	title := md.Title
	if title == "" {
		title = "Untitled"
	}

	// Sources may report fractional seconds; the record stores whole ones.
	var duration *int
	if md.DurationSeconds != nil {
		d := int(*md.DurationSeconds)
		duration = &d
	}

	width, height := "?", "?"
	if md.Width > 0 {
		width = fmt.Sprintf("%d", md.Width)
	}
	if md.Height > 0 {
		height = fmt.Sprintf("%d", md.Height)
	}

	var size int64
	if info, err := os.Stat(localPath); err == nil {
		size = info.Size()
	}

	return &models.MediaRecord{
		SourceURL:     url,
		Platform:      platform,
		SourceID:      md.SourceID,
		Title:         title,
		Description:   md.Description,
		Uploader:      uploader,
		UploaderID:    md.UploaderID,
		UploadDate:    md.UploadDate,
		Duration:      duration,
		ViewCount:     md.ViewCount,
		LikeCount:     md.LikeCount,
		CommentCount:  md.CommentCount,
		Resolution:    width + "x" + height,
		FPS:           md.FPS,
		Codec:         md.Codec,
		FileSize:      size,
		ContentHash:   hash,
		LocalPath:     localPath,
		ThumbnailPath: thumbnailPath,
		IngestedAt:    time.Now().UTC(),
		Tags:          models.StringList(opts.Tags),
		Collection:    opts.Collection,
		RawMetadata:   models.RawMap(md.Raw),
	}
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix
}
