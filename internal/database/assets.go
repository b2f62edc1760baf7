package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const assetColumns = `id, abs_path, rel_path, extension, title, category,
	COALESCE(parent_category, ''), COALESCE(collection, ''), price,
	duration_seconds, COALESCE(mime_type, ''), COALESCE(play_path, ''),
	transcode_status, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (*MediaAsset, error) {
	var a MediaAsset
	var createdAt, updatedAt int64

	err := row.Scan(
		&a.ID, &a.AbsPath, &a.RelPath, &a.Extension, &a.Title, &a.Category,
		&a.ParentCategory, &a.Collection, &a.Price,
		&a.DurationSeconds, &a.MimeType, &a.PlayPath,
		&a.TranscodeStatus, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}

// CreateAsset inserts a new asset. The UNIQUE constraint on abs_path makes
// this safe against concurrent scanners: a duplicate insert is ignored and
// reported as created=false rather than an error.
func (d *Database) CreateAsset(ctx context.Context, a *MediaAsset) (created bool, err error) {
	start := time.Now()
	defer func() { recordQuery("create_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO media_assets
			(abs_path, rel_path, extension, title, category, parent_category, collection, price, mime_type, transcode_status)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''), ?)`,
		a.AbsPath, a.RelPath, a.Extension, a.Title, a.Category,
		a.ParentCategory, a.Collection, a.Price, a.MimeType, TranscodeNone,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	a.ID, err = result.LastInsertId()
	return true, err
}

// GetAssetByID returns the asset with the given id or ErrNotFound.
func (d *Database) GetAssetByID(ctx context.Context, id int64) (asset *MediaAsset, err error) {
	start := time.Now()
	defer func() { recordQuery("get_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	asset, err = scanAsset(d.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return asset, err
}

// GetAssetByPath returns the asset with the given canonical absolute path,
// or ErrNotFound.
func (d *Database) GetAssetByPath(ctx context.Context, absPath string) (asset *MediaAsset, err error) {
	start := time.Now()
	defer func() { recordQuery("get_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	asset, err = scanAsset(d.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE abs_path = ?`, absPath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return asset, err
}

// ListAssetsAfter returns up to limit assets with id > afterID, ordered by
// id. Used by the batched maintenance operations to page through the
// library without offset scans.
func (d *Database) ListAssetsAfter(ctx context.Context, afterID int64, limit int) (assets []*MediaAsset, err error) {
	start := time.Now()
	defer func() { recordQuery("get_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, scanErr := scanAsset(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		assets = append(assets, a)
	}
	err = rows.Err()
	return assets, err
}

// CountAssets returns the number of assets in the library.
func (d *Database) CountAssets(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_assets`).Scan(&n)
	return n, err
}

// UpdateAssetClassification rewrites the inferred metadata and price of an
// asset. Used by the reorganize/smart-organize maintenance operations.
func (d *Database) UpdateAssetClassification(ctx context.Context, id int64, title, category, parentCategory, collection string, price float64) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_assets SET
			title = ?, category = ?, parent_category = NULLIF(?, ''),
			collection = NULLIF(?, ''), price = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		title, category, parentCategory, collection, price, id)
	return err
}

// UpdateAssetPlayback records the playable derivative produced by a
// transcode: derived path, mime type, probed duration and the new status.
func (d *Database) UpdateAssetPlayback(ctx context.Context, id int64, playPath, mimeType string, duration float64, status string) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_assets SET
			play_path = NULLIF(?, ''), mime_type = NULLIF(?, ''),
			duration_seconds = ?, transcode_status = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		playPath, mimeType, duration, status, id)
	return err
}

// UpdateAssetMetadata fills probed duration and mime type without touching
// playback state. Used by fix_library_metadata.
func (d *Database) UpdateAssetMetadata(ctx context.Context, id int64, mimeType string, duration float64) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE media_assets SET
			mime_type = NULLIF(?, ''), duration_seconds = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		mimeType, duration, id)
	return err
}

// SetAssetTranscodeStatus mirrors the job state onto the asset row.
func (d *Database) SetAssetTranscodeStatus(ctx context.Context, id int64, status string) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		`UPDATE media_assets SET transcode_status = ?, updated_at = strftime('%s', 'now') WHERE id = ?`,
		status, id)
	return err
}

// ListAssetsMissingMetadata returns assets without a probed duration or
// mime type, limited for bounded batches.
func (d *Database) ListAssetsMissingMetadata(ctx context.Context, limit int) ([]*MediaAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets
		 WHERE duration_seconds <= 0 OR mime_type IS NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// ScanFolders lists the distinct top-level library folders with their
// imported asset counts.
func (d *Database) ScanFolders(ctx context.Context) ([]ScanFolder, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// First segment of rel_path; assets at the library root group under ".".
	rows, err := d.db.QueryContext(ctx, `
		SELECT CASE WHEN instr(rel_path, '/') > 0
			THEN substr(rel_path, 1, instr(rel_path, '/') - 1)
			ELSE '.' END AS folder,
			COUNT(*) AS n
		FROM media_assets
		GROUP BY folder
		ORDER BY folder`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []ScanFolder
	for rows.Next() {
		var f ScanFolder
		if err := rows.Scan(&f.Name, &f.AssetCount); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// GetLibraryStats returns the admin dashboard summary.
func (d *Database) GetLibraryStats(ctx context.Context) (*LibraryStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := &LibraryStats{}
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT category),
			COALESCE(SUM(duration_seconds), 0),
			COALESCE(SUM(CASE WHEN duration_seconds <= 0 THEN 1 ELSE 0 END), 0)
		FROM media_assets`).Scan(
		&stats.TotalAssets, &stats.TotalCategories,
		&stats.TotalDuration, &stats.MissingDuration)
	if err != nil {
		return nil, err
	}

	queue, err := d.GetQueueStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Queue = *queue
	return stats, nil
}

// placeholders builds a "?, ?, ..." list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
