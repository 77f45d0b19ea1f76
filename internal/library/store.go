// Package library provides durable, queryable persistence of media records
// with relevance-ranked full-text search over an embedded SQLite database.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kelpmedia/kelp/pkg/errors"
	"github.com/kelpmedia/kelp/pkg/models"
)

// Store is the authoritative media library.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Stats aggregates library-wide reporting numbers.
type Stats struct {
	Count       int64            `json:"count"`
	TotalBytes  int64            `json:"total_bytes"`
	PerPlatform map[string]int64 `json:"per_platform"`
}

// UploaderCount is one row of the distinct-uploader report.
type UploaderCount struct {
	Uploader string `json:"uploader"`
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// Open opens (creating if necessary) the library database at path and
// installs the schema, including the full-text index and its sync triggers.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening library db: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing gorm connection, migrating the schema. Used by
// Open and by tests running against in-memory databases.
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&models.MediaRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	for _, stmt := range ftsSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("installing fts schema: %w", err)
		}
	}
	return &Store{
		db:     db,
		logger: logger.Named("library"),
	}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert persists a new record. The full-text index is updated in the same
// transaction. Fails with a duplicate error when the source URL or the
// (platform, source id) pair already exists.
func (s *Store) Insert(ctx context.Context, record *models.MediaRecord) error {
	if record.IngestedAt.IsZero() {
		record.IngestedAt = time.Now().UTC()
	}
	if record.Tags == nil {
		record.Tags = models.StringList{}
	}

	err := s.db.WithContext(ctx).Create(record).Error
	if err == nil {
		s.logger.Info("record inserted",
			zap.Int64("id", record.ID),
			zap.String("url", record.SourceURL),
			zap.String("platform", record.Platform))
		return nil
	}
	if errors.IsUniqueViolation(err) {
		return s.classifyDuplicate(ctx, record)
	}
	return errors.Store("inserting record", err)
}

// classifyDuplicate resolves which uniqueness rule an insert violated so
// callers can report the collision axis. Both rules key on the source, so
// either resolves to a URL-axis duplicate; content-hash duplicates are
// caught by ExistsByHash before insert.
func (s *Store) classifyDuplicate(ctx context.Context, record *models.MediaRecord) error {
	var existing models.MediaRecord
	err := s.db.WithContext(ctx).
		Where("source_url = ? OR (platform = ? AND source_id = ?)",
			record.SourceURL, record.Platform, record.SourceID).
		First(&existing).Error
	if err != nil {
		return errors.Duplicate(errors.CollisionURL, 0, "source already in library")
	}
	return errors.Duplicate(errors.CollisionURL, existing.ID,
		fmt.Sprintf("source already in library: %s", existing.SourceURL))
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, id int64) (*models.MediaRecord, error) {
	var record models.MediaRecord
	err := s.db.WithContext(ctx).First(&record, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound(fmt.Sprintf("record %d not found", id))
	}
	if err != nil {
		return nil, errors.Store("loading record", err)
	}
	return &record, nil
}

// GetByURL retrieves a record by its source URL.
func (s *Store) GetByURL(ctx context.Context, url string) (*models.MediaRecord, error) {
	var record models.MediaRecord
	err := s.db.WithContext(ctx).Where("source_url = ?", url).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound("record not found for url")
	}
	if err != nil {
		return nil, errors.Store("loading record", err)
	}
	return &record, nil
}

// ExistsByURL reports whether a record with this source URL exists.
func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).
		Where("source_url = ?", url).Count(&count).Error
	if err != nil {
		return false, errors.Store("checking url", err)
	}
	return count > 0, nil
}

// ExistsByHash reports whether a record with this content hash exists.
func (s *Store) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).
		Where("content_hash = ?", hash).Count(&count).Error
	if err != nil {
		return false, errors.Store("checking hash", err)
	}
	return count > 0, nil
}

// Search runs a prefix-matching full-text query across title, description,
// uploader, tags, and notes. Results are ordered by relevance rank with
// most-recent-first tie-breaking. User input is escaped so FTS syntax
// characters cannot corrupt the query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.MediaRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	// Double embedded quotes, then quote the whole term and append * for
	// prefix matching ("departm" matches "department").
	escaped := strings.ReplaceAll(query, `"`, `""`)
	ftsQuery := `"` + escaped + `"*`

	var records []models.MediaRecord
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.* FROM media_records m
		JOIN media_fts f ON m.id = f.rowid
		WHERE media_fts MATCH ?
		ORDER BY f.rank, m.ingested_at DESC
		LIMIT ?`, ftsQuery, limit).Scan(&records).Error
	if err != nil {
		return nil, errors.Store("searching", err)
	}
	return records, nil
}

// Update saves changes to an existing record. The full-text index is
// re-synchronized in the same transaction by the update trigger.
func (s *Store) Update(ctx context.Context, record *models.MediaRecord) error {
	if record.ID == 0 {
		return errors.Store("updating record", fmt.Errorf("record has no id"))
	}
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return errors.Store("updating record", err)
	}
	return nil
}

// Delete removes a record and its index entry. Returns whether a row
// existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.MediaRecord{}, id)
	if result.Error != nil {
		return false, errors.Store("deleting record", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).Count(&count).Error; err != nil {
		return 0, errors.Store("counting records", err)
	}
	return count, nil
}

// Stats returns aggregate library statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{PerPlatform: make(map[string]int64)}

	if err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).Count(&stats.Count).Error; err != nil {
		return nil, errors.Store("counting records", err)
	}

	err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).
		Select("COALESCE(SUM(file_size_bytes), 0)").Scan(&stats.TotalBytes).Error
	if err != nil {
		return nil, errors.Store("summing sizes", err)
	}

	var rows []struct {
		Platform string
		Count    int64
	}
	err = s.db.WithContext(ctx).Model(&models.MediaRecord{}).
		Select("platform, COUNT(*) as count").
		Group("platform").Order("count DESC").Scan(&rows).Error
	if err != nil {
		return nil, errors.Store("grouping platforms", err)
	}
	for _, row := range rows {
		stats.PerPlatform[row.Platform] = row.Count
	}

	return stats, nil
}

// Recent returns the most recently ingested records.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.MediaRecord, error) {
	return s.list(ctx, limit, s.db.WithContext(ctx))
}

// ByPlatform returns records for one platform, newest first.
func (s *Store) ByPlatform(ctx context.Context, platform string, limit int) ([]models.MediaRecord, error) {
	return s.list(ctx, limit, s.db.WithContext(ctx).Where("platform = ?", platform))
}

// ByUploader returns records whose uploader name or id matches, newest
// first.
func (s *Store) ByUploader(ctx context.Context, uploader string, limit int) ([]models.MediaRecord, error) {
	return s.list(ctx, limit, s.db.WithContext(ctx).
		Where("uploader = ? OR uploader_id = ?", uploader, uploader))
}

// ByCollection returns records in a collection, newest first.
func (s *Store) ByCollection(ctx context.Context, collection string, limit int) ([]models.MediaRecord, error) {
	return s.list(ctx, limit, s.db.WithContext(ctx).Where("collection = ?", collection))
}

func (s *Store) list(ctx context.Context, limit int, query *gorm.DB) ([]models.MediaRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.MediaRecord
	if err := query.Order("ingested_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, errors.Store("listing records", err)
	}
	return records, nil
}

// Uploaders returns distinct uploaders with their record counts.
func (s *Store) Uploaders(ctx context.Context) ([]UploaderCount, error) {
	var rows []UploaderCount
	err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).
		Select("uploader, platform, COUNT(*) as count").
		Group("uploader, platform").Order("count DESC").Scan(&rows).Error
	if err != nil {
		return nil, errors.Store("listing uploaders", err)
	}
	return rows, nil
}
