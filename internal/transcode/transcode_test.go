package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streampay/internal/database"
)

func setupTestDB(t testing.TB) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeRunner simulates ffmpeg: on success it writes the output file named
// by the final argument.
type fakeRunner struct {
	err    error
	stderr string
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string) (string, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return f.stderr, f.err
	}
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("transcoded"), 0o644); err != nil {
		return "", err
	}
	return "", nil
}

func newTestOrchestrator(t *testing.T, db *database.Database, runner commandRunner) *Orchestrator {
	t.Helper()

	o := New(db, "", 2*time.Hour)
	o.runner = runner
	return o
}

func seedAsset(t *testing.T, db *database.Database, dir, name, ext string) *database.MediaAsset {
	t.Helper()

	ctx := context.Background()
	absPath := filepath.Join(dir, name)
	if err := os.WriteFile(absPath, []byte("source"), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}

	asset := &database.MediaAsset{
		AbsPath:   absPath,
		RelPath:   name,
		Extension: ext,
		Title:     "Test",
		Category:  "GENERAL",
		Price:     1.0,
	}
	if _, err := db.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	seeded, err := db.GetAssetByPath(ctx, absPath)
	if err != nil {
		t.Fatalf("GetAssetByPath failed: %v", err)
	}
	return seeded
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src  string
		ext  string
		want string
	}{
		{"/library/movies/a.avi", "mp4", "/library/movies/a_transcoded.mp4"},
		{"/library/b.wmv", "mkv", "/library/b_transcoded.mkv"},
		{"/library/no.ext.avi", "mp4", "/library/no.ext_transcoded.mp4"},
	}

	for _, tt := range tests {
		if got := outputPath(tt.src, tt.ext); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.src, tt.ext, got, tt.want)
		}
	}
}

func TestFindBinaries(t *testing.T) {
	// With no configured path and no Synology mounts, the bare names are
	// returned and PATH resolution happens at exec time.
	ffmpeg, ffprobe := FindBinaries("")
	if ffmpeg == "" || ffprobe == "" {
		t.Errorf("Expected non-empty binary names, got %q / %q", ffmpeg, ffprobe)
	}

	// A configured executable path wins.
	dir := t.TempDir()
	custom := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(custom, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake binary: %v", err)
	}
	ffmpeg, _ = FindBinaries(custom)
	if ffmpeg != custom {
		t.Errorf("Expected configured ffmpeg %q, got %q", custom, ffmpeg)
	}

	// A configured path that is not executable is ignored.
	plain := filepath.Join(dir, "notexec")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	ffmpeg, _ = FindBinaries(plain)
	if ffmpeg == plain {
		t.Error("Expected non-executable configured path to be ignored")
	}
}

func TestEnqueueMatchingNormalizes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	seedAsset(t, db, dir, "old.avi", "avi")
	if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "avi", Args: "-c copy"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	o := newTestOrchestrator(t, db, &fakeRunner{})

	n, err := o.EnqueueMatching(ctx, []string{".AVI", "avi", "", ".avi"})
	if err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 job from deduplicated extensions, got %d", n)
	}

	n, err = o.EnqueueMatching(ctx, nil)
	if err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 jobs for empty extension list, got %d", n)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	db := setupTestDB(t)
	o := newTestOrchestrator(t, db, &fakeRunner{})

	outcome, err := o.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	if outcome != nil {
		t.Errorf("Expected nil outcome for empty queue, got %+v", outcome)
	}
}

func TestProcessNextSuccess(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	asset := seedAsset(t, db, dir, "old.avi", "avi")
	if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "avi", Args: "-c:v libx264 -c:a aac", OutputExt: "mp4"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	runner := &fakeRunner{}
	o := newTestOrchestrator(t, db, runner)

	if _, err := o.EnqueueMatching(ctx, []string{"avi"}); err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}

	outcome, err := o.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	if outcome == nil {
		t.Fatal("Expected an outcome, got nil")
	}
	if outcome.Status != string(database.JobDone) {
		t.Errorf("Expected DONE, got %s (%s)", outcome.Status, outcome.Error)
	}

	wantOutput := filepath.Join(dir, "old_transcoded.mp4")
	if outcome.PlayPath != wantOutput {
		t.Errorf("Expected play path %s, got %s", wantOutput, outcome.PlayPath)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Errorf("Expected output file to exist: %v", err)
	}

	// Profile args must be passed through to the command.
	if len(runner.calls) != 1 {
		t.Fatalf("Expected 1 ffmpeg invocation, got %d", len(runner.calls))
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-c:v libx264 -c:a aac") {
		t.Errorf("Expected profile args in command, got %q", joined)
	}
	if !strings.Contains(joined, asset.AbsPath) {
		t.Errorf("Expected source path in command, got %q", joined)
	}

	updated, err := db.GetAssetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if updated.TranscodeStatus != string(database.JobDone) {
		t.Errorf("Expected asset status DONE, got %s", updated.TranscodeStatus)
	}
	if updated.PlayPath != wantOutput {
		t.Errorf("Expected asset play path %s, got %s", wantOutput, updated.PlayPath)
	}
	if updated.PlayablePath() != wantOutput {
		t.Errorf("Expected playable path to prefer transcoded output")
	}

	stats, err := db.GetQueueStats(ctx)
	if err != nil {
		t.Fatalf("GetQueueStats failed: %v", err)
	}
	if stats.Done != 1 {
		t.Errorf("Expected 1 done job, got %+v", stats)
	}
}

func TestProcessNextFailureAndRetry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	asset := seedAsset(t, db, dir, "bad.wmv", "wmv")
	if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "wmv", Args: "-c copy"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	runner := &fakeRunner{err: errors.New("exit status 1"), stderr: "Unsupported codec"}
	o := newTestOrchestrator(t, db, runner)

	if _, err := o.EnqueueMatching(ctx, []string{"wmv"}); err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}

	outcome, err := o.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	if outcome.Status != string(database.JobFailed) {
		t.Errorf("Expected FAILED, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.Error, "Unsupported codec") {
		t.Errorf("Expected stderr tail in diagnostic, got %q", outcome.Error)
	}

	job, err := db.GetJobForAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetJobForAsset failed: %v", err)
	}
	if job.Status != database.JobFailed || job.AttemptCount != 1 {
		t.Errorf("Unexpected job state: %+v", job)
	}

	updated, _ := db.GetAssetByID(ctx, asset.ID)
	if updated.TranscodeStatus != string(database.JobFailed) {
		t.Errorf("Expected asset status FAILED, got %s", updated.TranscodeStatus)
	}

	// Retry and fail again: the attempt count keeps growing.
	n, err := o.RetryAllFailed(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RetryAllFailed: n=%d err=%v", n, err)
	}
	if _, err := o.ProcessNext(ctx); err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}

	job, _ = db.GetJobForAsset(ctx, asset.ID)
	if job.AttemptCount != 2 {
		t.Errorf("Expected attempt count 2, got %d", job.AttemptCount)
	}
}

// silentRunner exits cleanly but writes no usable output.
type silentRunner struct {
	writeEmpty bool
}

func (r *silentRunner) Run(_ context.Context, _ string, args []string) (string, error) {
	if r.writeEmpty {
		return "", os.WriteFile(args[len(args)-1], nil, 0o644)
	}
	return "", nil
}

func TestProcessNextMissingOutput(t *testing.T) {
	tests := []struct {
		name       string
		runner     *silentRunner
		diagnostic string
	}{
		{"no output file", &silentRunner{}, "no output"},
		{"empty output file", &silentRunner{writeEmpty: true}, "empty output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()
			dir := t.TempDir()

			asset := seedAsset(t, db, dir, "old.avi", "avi")
			if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "avi", Args: "-c copy"}); err != nil {
				t.Fatalf("SaveProfile failed: %v", err)
			}

			o := newTestOrchestrator(t, db, tt.runner)
			if _, err := o.EnqueueMatching(ctx, []string{"avi"}); err != nil {
				t.Fatalf("EnqueueMatching failed: %v", err)
			}

			outcome, err := o.ProcessNext(ctx)
			if err != nil {
				t.Fatalf("ProcessNext failed: %v", err)
			}
			if outcome.Status != string(database.JobFailed) {
				t.Errorf("Expected FAILED, got %s", outcome.Status)
			}
			if !strings.Contains(outcome.Error, tt.diagnostic) {
				t.Errorf("Expected %q in diagnostic, got %q", tt.diagnostic, outcome.Error)
			}

			output := filepath.Join(dir, "old_transcoded.mp4")
			if _, err := os.Stat(output); err == nil {
				t.Error("Expected no output file to remain")
			}

			updated, err := db.GetAssetByID(ctx, asset.ID)
			if err != nil {
				t.Fatalf("GetAssetByID failed: %v", err)
			}
			if updated.TranscodeStatus != string(database.JobFailed) {
				t.Errorf("Expected asset status FAILED, got %s", updated.TranscodeStatus)
			}
			if updated.PlayPath != "" {
				t.Errorf("Expected no play path, got %q", updated.PlayPath)
			}

			job, err := db.GetJobForAsset(ctx, asset.ID)
			if err != nil {
				t.Fatalf("GetJobForAsset failed: %v", err)
			}
			if job.Status != database.JobFailed {
				t.Errorf("Expected job FAILED, got %s", job.Status)
			}
		})
	}
}

func TestProbeFailureRecordsZeroDuration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	asset := seedAsset(t, db, dir, "old.avi", "avi")
	if err := db.UpdateAssetMetadata(ctx, asset.ID, "video/x-msvideo", 123); err != nil {
		t.Fatalf("UpdateAssetMetadata failed: %v", err)
	}
	if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "avi", Args: "-c copy"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	o := newTestOrchestrator(t, db, &fakeRunner{})
	o.probe = NewFFProbe(filepath.Join(dir, "missing-ffprobe"))

	if _, err := o.EnqueueMatching(ctx, []string{"avi"}); err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}
	outcome, err := o.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	if outcome.Status != string(database.JobDone) {
		t.Fatalf("Expected DONE, got %s (%s)", outcome.Status, outcome.Error)
	}

	updated, err := db.GetAssetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAssetByID failed: %v", err)
	}
	if updated.DurationSeconds != 0 {
		t.Errorf("Expected duration 0 after failed probe, got %f", updated.DurationSeconds)
	}
}

func TestClearQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	seedAsset(t, db, dir, "a.avi", "avi")
	if err := db.SaveProfile(ctx, &database.TranscodeProfile{Extension: "avi", Args: "-c copy"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	o := newTestOrchestrator(t, db, &fakeRunner{})
	if _, err := o.EnqueueMatching(ctx, []string{"avi"}); err != nil {
		t.Fatalf("EnqueueMatching failed: %v", err)
	}

	n, err := o.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 cleared job, got %d", n)
	}

	outcome, err := o.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("ProcessNext failed: %v", err)
	}
	if outcome != nil {
		t.Errorf("Expected empty queue after clear, got %+v", outcome)
	}
}
