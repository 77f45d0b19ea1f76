package library

// The full-text index is a contentless-sync FTS5 table kept in lockstep
// with media_records by write-path triggers. Because SQLite fires triggers
// inside the statement's transaction, every insert, update, and delete
// spans the primary row and the index as one all-or-nothing unit.
var ftsSchema = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS media_fts USING fts5(
		title,
		description,
		uploader,
		tags,
		notes,
		content='media_records',
		content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS media_records_ai AFTER INSERT ON media_records BEGIN
		INSERT INTO media_fts(rowid, title, description, uploader, tags, notes)
		VALUES (new.id, new.title, new.description, new.uploader, new.tags, new.notes);
	END`,
	`CREATE TRIGGER IF NOT EXISTS media_records_ad AFTER DELETE ON media_records BEGIN
		INSERT INTO media_fts(media_fts, rowid, title, description, uploader, tags, notes)
		VALUES ('delete', old.id, old.title, old.description, old.uploader, old.tags, old.notes);
	END`,
	`CREATE TRIGGER IF NOT EXISTS media_records_au AFTER UPDATE ON media_records BEGIN
		INSERT INTO media_fts(media_fts, rowid, title, description, uploader, tags, notes)
		VALUES ('delete', old.id, old.title, old.description, old.uploader, old.tags, old.notes);
		INSERT INTO media_fts(rowid, title, description, uploader, tags, notes)
		VALUES (new.id, new.title, new.description, new.uploader, new.tags, new.notes);
	END`,
}
