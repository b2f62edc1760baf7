package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SaveProfile inserts or replaces the transcode profile for an extension.
func (d *Database) SaveProfile(ctx context.Context, p *TranscodeProfile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	outputExt := p.OutputExt
	if outputExt == "" {
		outputExt = "mp4"
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO transcode_profiles (extension, args, output_ext)
		VALUES (?, ?, ?)
		ON CONFLICT(extension) DO UPDATE SET
			args = excluded.args,
			output_ext = excluded.output_ext`,
		p.Extension, p.Args, outputExt)
	return err
}

// DeleteProfile removes the profile for an extension.
func (d *Database) DeleteProfile(ctx context.Context, extension string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		`DELETE FROM transcode_profiles WHERE extension = ?`, extension)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProfile returns the profile for an extension or ErrNotFound.
func (d *Database) GetProfile(ctx context.Context, extension string) (*TranscodeProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p TranscodeProfile
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		`SELECT extension, args, output_ext, created_at FROM transcode_profiles WHERE extension = ?`,
		extension).Scan(&p.Extension, &p.Args, &p.OutputExt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// ListProfiles returns all transcode profiles ordered by extension.
func (d *Database) ListProfiles(ctx context.Context) ([]TranscodeProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT extension, args, output_ext, created_at FROM transcode_profiles ORDER BY extension`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []TranscodeProfile
	for rows.Next() {
		var p TranscodeProfile
		var createdAt int64
		if err := rows.Scan(&p.Extension, &p.Args, &p.OutputExt, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// EnqueueJobsForExtensions creates PENDING jobs for every asset whose
// extension is in exts, has a matching profile and has no job yet.
// Returns the number of jobs created.
func (d *Database) EnqueueJobsForExtensions(ctx context.Context, exts []string) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("enqueue_jobs", start, err) }()

	if len(exts) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := make([]any, len(exts))
	for i, e := range exts {
		args[i] = e
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO transcode_jobs (asset_id, profile_extension, status)
		SELECT a.id, a.extension, 'PENDING'
		FROM media_assets a
		JOIN transcode_profiles p ON p.extension = a.extension
		WHERE a.extension IN (`+placeholders(len(exts))+`)
		  AND NOT EXISTS (SELECT 1 FROM transcode_jobs j WHERE j.asset_id = a.id)`,
		args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClaimNextJob atomically claims the oldest PENDING job, transitioning it
// to PROCESSING. The transition is guarded by a compare-and-set on the
// status so two concurrent callers can never claim the same job; the loser
// of a race simply retries the next candidate. Returns (nil, nil) when no
// job is eligible.
func (d *Database) ClaimNextJob(ctx context.Context) (job *TranscodeJob, err error) {
	start := time.Now()
	defer func() { recordQuery("claim_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Bounded retries: a lost race moves on to the next candidate rather
	// than surfacing an error.
	for attempt := 0; attempt < 3; attempt++ {
		var id int64
		err = d.db.QueryRowContext(ctx, `
			SELECT id FROM transcode_jobs
			WHERE status = 'PENDING'
			ORDER BY created_at ASC, id ASC
			LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		result, execErr := d.db.ExecContext(ctx, `
			UPDATE transcode_jobs SET
				status = 'PROCESSING',
				claimed_at = strftime('%s', 'now'),
				updated_at = strftime('%s', 'now')
			WHERE id = ? AND status = 'PENDING'`, id)
		if execErr != nil {
			err = execErr
			return nil, err
		}

		rows, raErr := result.RowsAffected()
		if raErr != nil {
			err = raErr
			return nil, err
		}
		if rows == 0 {
			// Lost the race; someone else claimed it first.
			continue
		}

		job, err = d.getJob(ctx, id)
		return job, err
	}

	return nil, nil
}

func (d *Database) getJob(ctx context.Context, id int64) (*TranscodeJob, error) {
	var j TranscodeJob
	var lastError sql.NullString
	var claimedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := d.db.QueryRowContext(ctx, `
		SELECT id, asset_id, profile_extension, status, attempt_count,
			last_error, claimed_at, created_at, updated_at
		FROM transcode_jobs WHERE id = ?`, id).Scan(
		&j.ID, &j.AssetID, &j.ProfileExtension, &j.Status, &j.AttemptCount,
		&lastError, &claimedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	j.LastError = lastError.String
	if claimedAt.Valid {
		t := time.Unix(claimedAt.Int64, 0)
		j.ClaimedAt = &t
	}
	j.CreatedAt = time.Unix(createdAt, 0)
	j.UpdatedAt = time.Unix(updatedAt, 0)
	return &j, nil
}

// CompleteJob transitions a PROCESSING job to DONE.
func (d *Database) CompleteJob(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { recordQuery("complete_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs SET
			status = 'DONE', claimed_at = NULL,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`, id)
	return err
}

// FailJob transitions a PROCESSING job to FAILED, recording the captured
// diagnostic output and incrementing the attempt counter.
func (d *Database) FailJob(ctx context.Context, id int64, diagnostic string) (err error) {
	start := time.Now()
	defer func() { recordQuery("fail_job", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs SET
			status = 'FAILED', last_error = ?, claimed_at = NULL,
			attempt_count = attempt_count + 1,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`, diagnostic, id)
	return err
}

// RetryFailedJobs resets every FAILED job to PENDING and clears its error.
// Returns the number of jobs reset.
func (d *Database) RetryFailedJobs(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("retry_failed", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE transcode_jobs SET
			status = 'PENDING', last_error = NULL,
			updated_at = strftime('%s', 'now')
		WHERE status = 'FAILED'`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearQueue deletes every job not in DONE. Returns the number removed.
func (d *Database) ClearQueue(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("clear_queue", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		`DELETE FROM transcode_jobs WHERE status != 'DONE'`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReclaimStaleJobs returns jobs stuck in PROCESSING longer than lease back
// to PENDING. A crash between claim and completion otherwise leaves the job
// orphaned forever.
func (d *Database) ReclaimStaleJobs(ctx context.Context, lease time.Duration) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("reclaim_stale", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-lease).Unix()
	result, err := d.db.ExecContext(ctx, `
		UPDATE transcode_jobs SET
			status = 'PENDING', claimed_at = NULL,
			updated_at = strftime('%s', 'now')
		WHERE status = 'PROCESSING' AND claimed_at IS NOT NULL AND claimed_at < ?`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetQueueStats returns job counts grouped by status.
func (d *Database) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM transcode_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &QueueStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch JobStatus(status) {
		case JobPending:
			stats.Pending = count
		case JobProcessing:
			stats.Processing = count
		case JobDone:
			stats.Done = count
		case JobFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// GetJobForAsset returns the job attached to an asset, or ErrNotFound.
func (d *Database) GetJobForAsset(ctx context.Context, assetID int64) (*TranscodeJob, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var id int64
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM transcode_jobs WHERE asset_id = ? ORDER BY id DESC LIMIT 1`,
		assetID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.getJob(ctx, id)
}
