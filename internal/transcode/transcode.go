package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"streampay/internal/database"
	"streampay/internal/logging"
	"streampay/internal/mediatypes"
	"streampay/internal/metrics"
)

const (
	// defaultPollInterval is how often the background worker checks for
	// work when the queue is empty.
	defaultPollInterval = 10 * time.Second

	// stderrTailLimit caps how much ffmpeg output a failed job stores.
	stderrTailLimit = 4096
)

// commandRunner executes a transcode command, returning the tail of its
// stderr on failure. Replaced in tests.
type commandRunner interface {
	Run(ctx context.Context, bin string, args []string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	tail := stderr.String()
	if len(tail) > stderrTailLimit {
		tail = tail[len(tail)-stderrTailLimit:]
	}
	return strings.TrimSpace(tail), err
}

// Orchestrator works the transcode job queue.
type Orchestrator struct {
	db      *database.Database
	ffmpeg  string
	ffprobe string
	probe   *FFProbe
	lease   time.Duration
	poll    time.Duration
	runner  commandRunner

	stopChan chan struct{}
	stopOnce sync.Once
}

// JobOutcome reports what ProcessNext did with a claimed job.
type JobOutcome struct {
	JobID    int64  `json:"jobId"`
	AssetID  int64  `json:"assetId"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	PlayPath string `json:"playPath,omitempty"`
}

// New creates an Orchestrator, resolving the ffmpeg/ffprobe binaries.
func New(db *database.Database, configuredFFmpeg string, lease time.Duration) *Orchestrator {
	ffmpeg, ffprobe := FindBinaries(configuredFFmpeg)
	return &Orchestrator{
		db:       db,
		ffmpeg:   ffmpeg,
		ffprobe:  ffprobe,
		probe:    NewFFProbe(ffprobe),
		lease:    lease,
		poll:     defaultPollInterval,
		runner:   execRunner{},
		stopChan: make(chan struct{}),
	}
}

// FFmpegPath returns the resolved ffmpeg binary.
func (o *Orchestrator) FFmpegPath() string { return o.ffmpeg }

// FFprobePath returns the resolved ffprobe binary.
func (o *Orchestrator) FFprobePath() string { return o.ffprobe }

// Prober returns the duration prober backed by the resolved ffprobe.
func (o *Orchestrator) Prober() *FFProbe { return o.probe }

// EnqueueMatching queues a PENDING job for every asset whose extension is
// in exts and has a transcode profile, skipping assets that already have a
// job. Extensions are normalized, so ".MKV" and "mkv" queue the same assets.
func (o *Orchestrator) EnqueueMatching(ctx context.Context, exts []string) (int64, error) {
	seen := make(map[string]bool, len(exts))
	normalized := make([]string, 0, len(exts))
	for _, e := range exts {
		n := mediatypes.NormalizeExt(e)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return 0, nil
	}

	n, err := o.db.EnqueueJobsForExtensions(ctx, normalized)
	if err != nil {
		return 0, err
	}
	logging.Info("Enqueued %d transcode jobs for extensions %v", n, normalized)
	return n, nil
}

// ProcessNext reclaims expired claims, then claims and runs the oldest
// PENDING job. Returns nil when the queue has no eligible work. A job that
// fails is recorded as FAILED, not surfaced as an error; errors mean the
// queue itself could not be worked.
func (o *Orchestrator) ProcessNext(ctx context.Context) (*JobOutcome, error) {
	reclaimed, err := o.db.ReclaimStaleJobs(ctx, o.lease)
	if err != nil {
		return nil, err
	}
	if reclaimed > 0 {
		metrics.TranscodeJobsReclaimed.Add(float64(reclaimed))
		logging.Warn("Reclaimed %d transcode jobs with expired leases", reclaimed)
	}

	job, err := o.db.ClaimNextJob(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	metrics.TranscodeJobsInProgress.Inc()
	defer metrics.TranscodeJobsInProgress.Dec()

	start := time.Now()
	outcome := o.runJob(ctx, job)
	metrics.TranscodeJobDuration.Observe(time.Since(start).Seconds())
	metrics.TranscodeJobsTotal.WithLabelValues(strings.ToLower(outcome.Status)).Inc()

	return outcome, nil
}

func (o *Orchestrator) runJob(ctx context.Context, job *database.TranscodeJob) *JobOutcome {
	outcome := &JobOutcome{JobID: job.ID, AssetID: job.AssetID}

	asset, err := o.db.GetAssetByID(ctx, job.AssetID)
	if err != nil {
		return o.fail(ctx, job, outcome, fmt.Sprintf("asset %d unavailable: %v", job.AssetID, err))
	}
	profile, err := o.db.GetProfile(ctx, job.ProfileExtension)
	if err != nil {
		return o.fail(ctx, job, outcome, fmt.Sprintf("profile %q unavailable: %v", job.ProfileExtension, err))
	}

	if err := o.db.SetAssetTranscodeStatus(ctx, asset.ID, string(database.JobProcessing)); err != nil {
		logging.Warn("Failed to mark asset %d processing: %v", asset.ID, err)
	}

	output := outputPath(asset.AbsPath, profile.OutputExt)
	args := append([]string{"-y", "-i", asset.AbsPath}, strings.Fields(profile.Args)...)
	args = append(args, output)

	logging.Info("Transcoding asset %d: %s -> %s", asset.ID, asset.RelPath, filepath.Base(output))
	logging.Debug("ffmpeg args: %v", args)

	tail, err := o.runner.Run(ctx, o.ffmpeg, args)
	if err != nil {
		os.Remove(output) // partial output is useless
		diagnostic := fmt.Sprintf("%v: %s", err, tail)
		return o.fail(ctx, job, outcome, diagnostic)
	}

	// A clean exit without a usable output file is still a tool failure.
	info, err := os.Stat(output)
	if err != nil {
		return o.fail(ctx, job, outcome, fmt.Sprintf("transcoder produced no output: %v", err))
	}
	if info.Size() == 0 {
		os.Remove(output)
		return o.fail(ctx, job, outcome, "transcoder produced an empty output file")
	}

	duration, err := o.probe.Duration(ctx, output)
	if err != nil {
		metrics.ProbeFailures.Inc()
		logging.Warn("Probe of transcoded output failed for asset %d: %v", asset.ID, err)
		duration = 0
	}

	mime := mediatypes.StreamMime(output)
	if err := o.db.UpdateAssetPlayback(ctx, asset.ID, output, mime, duration, string(database.JobDone)); err != nil {
		return o.fail(ctx, job, outcome, fmt.Sprintf("playback update failed: %v", err))
	}
	if err := o.db.CompleteJob(ctx, job.ID); err != nil {
		return o.fail(ctx, job, outcome, fmt.Sprintf("completion update failed: %v", err))
	}

	outcome.Status = string(database.JobDone)
	outcome.PlayPath = output
	logging.Info("Transcode complete for asset %d (%.1fs of media)", asset.ID, duration)
	return outcome
}

func (o *Orchestrator) fail(ctx context.Context, job *database.TranscodeJob, outcome *JobOutcome, diagnostic string) *JobOutcome {
	logging.Error("Transcode job %d failed: %s", job.ID, diagnostic)

	if err := o.db.FailJob(ctx, job.ID, diagnostic); err != nil {
		logging.Error("Failed to record job %d failure: %v", job.ID, err)
	}
	if err := o.db.SetAssetTranscodeStatus(ctx, job.AssetID, string(database.JobFailed)); err != nil {
		logging.Warn("Failed to mark asset %d failed: %v", job.AssetID, err)
	}

	outcome.Status = string(database.JobFailed)
	outcome.Error = diagnostic
	return outcome
}

// RetryAllFailed resets every FAILED job to PENDING.
func (o *Orchestrator) RetryAllFailed(ctx context.Context) (int64, error) {
	n, err := o.db.RetryFailedJobs(ctx)
	if err != nil {
		return 0, err
	}
	logging.Info("Reset %d failed transcode jobs to pending", n)
	return n, nil
}

// ClearQueue removes every job that is not DONE.
func (o *Orchestrator) ClearQueue(ctx context.Context) (int64, error) {
	n, err := o.db.ClearQueue(ctx)
	if err != nil {
		return 0, err
	}
	logging.Info("Cleared %d transcode jobs from the queue", n)
	return n, nil
}

// QueueStats returns job counts by status.
func (o *Orchestrator) QueueStats(ctx context.Context) (*database.QueueStats, error) {
	return o.db.GetQueueStats(ctx)
}

// Start launches the background worker loop.
func (o *Orchestrator) Start() {
	go o.run()
}

// Stop halts the background worker. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopChan) })
}

func (o *Orchestrator) run() {
	for {
		select {
		case <-o.stopChan:
			return
		default:
		}

		outcome, err := o.ProcessNext(context.Background())
		if err != nil {
			logging.Error("Transcode worker error: %v", err)
		}

		// Work back-to-back while the queue has jobs; idle otherwise.
		if err == nil && outcome != nil {
			continue
		}

		select {
		case <-o.stopChan:
			return
		case <-time.After(o.poll):
		}
	}
}

// outputPath names the transcoded file: next to the source, with a suffix
// so it never collides with the original even when the container format is
// unchanged.
func outputPath(srcPath, outputExt string) string {
	dir := filepath.Dir(srcPath)
	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return filepath.Join(dir, stem+"_transcoded."+outputExt)
}
