package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"streampay/internal/classify"
	"streampay/internal/database"
	"streampay/internal/logging"
	"streampay/internal/mediatypes"
	"streampay/internal/metrics"
)

// defaultBatchSize bounds how many media files a single batch imports.
const defaultBatchSize = 40

// Prober reports the playback duration of a media file in seconds.
// Implemented by the transcode package's ffprobe wrapper.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Scanner imports library files as classified media assets.
type Scanner struct {
	db         *database.Database
	libraryDir string
	categories []classify.Category
	batchSize  int
	interval   time.Duration
	prober     Prober

	stopChan chan struct{}
	stopOnce sync.Once

	// Serializes batch processing; concurrent API calls and the
	// background runner must not interleave cursor updates.
	batchMu sync.Mutex
}

// BatchResult describes the outcome of one scan batch.
type BatchResult struct {
	Processed int    `json:"processed"`
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
	Remaining int    `json:"remaining"`
	Done      bool   `json:"done"`
	Cursor    string `json:"cursor,omitempty"`
}

// MaintenanceResult describes the outcome of a library maintenance pass.
type MaintenanceResult struct {
	Examined int `json:"examined"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// New creates a Scanner.
func New(db *database.Database, libraryDir string, categories []classify.Category, batchSize int, interval time.Duration) *Scanner {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &Scanner{
		db:         db,
		libraryDir: libraryDir,
		categories: categories,
		batchSize:  batchSize,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// SetProber wires the duration prober used by FixMetadata and imports.
func (s *Scanner) SetProber(p Prober) {
	s.prober = p
}

// StartScan resets the scan cursor and processes the first batch.
func (s *Scanner) StartScan(ctx context.Context) (*BatchResult, error) {
	if err := s.db.DeleteScanState(ctx, cursorKey); err != nil {
		return nil, err
	}
	logging.Info("Library scan started: %s", s.libraryDir)
	return s.ProcessBatch(ctx)
}

// ProcessBatch walks the library from the persisted cursor and imports up
// to the configured batch size of media files. The cursor advances only
// after the batch succeeds, so a crash mid-batch re-processes at most one
// batch, and path uniqueness makes that re-processing harmless.
func (s *Scanner) ProcessBatch(ctx context.Context) (result *BatchResult, err error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ScannerBatchesTotal.WithLabelValues(status).Inc()
		metrics.ScannerBatchDuration.Observe(time.Since(start).Seconds())
	}()

	cursor, err := s.db.GetScanState(ctx, cursorKey)
	if err != nil {
		return nil, err
	}

	result = &BatchResult{}
	lastProcessed := cursor

	walkErr := filepath.WalkDir(s.libraryDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are logged and skipped, not fatal.
			logging.Warn("Scan: skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(s.libraryDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && rel != "." {
				return filepath.SkipDir
			}
			if dirExhausted(rel, cursor) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		// Resume: everything at or before the cursor was already handled.
		if cursor != "" && !walkOrderLess(cursor, rel) {
			return nil
		}

		if !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(path))) {
			result.Skipped++
			metrics.ScannerEntriesSkipped.Inc()
			return nil
		}

		// Batch full: count what remains instead of importing it.
		if result.Processed >= s.batchSize {
			result.Remaining++
			return nil
		}

		created, err := s.importFile(ctx, path, rel, mediatypes.ExtOf(path))
		if err != nil {
			return err
		}
		result.Processed++
		if created {
			result.Imported++
		}
		lastProcessed = rel
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	result.Done = result.Remaining == 0

	if result.Done {
		if err = s.db.DeleteScanState(ctx, cursorKey); err != nil {
			return nil, err
		}
		logging.Info("Scan batch: imported %d, skipped %d (scan complete)",
			result.Imported, result.Skipped)
		return result, nil
	}

	result.Cursor = lastProcessed
	if err = s.db.SetScanState(ctx, cursorKey, lastProcessed); err != nil {
		return nil, err
	}
	logging.Info("Scan batch: imported %d, skipped %d, %d remaining (cursor %s)",
		result.Imported, result.Skipped, result.Remaining, lastProcessed)
	return result, nil
}

// importFile classifies and inserts a single media file. Inserting a path
// that already exists is a no-op.
func (s *Scanner) importFile(ctx context.Context, absPath, relPath, ext string) (bool, error) {
	res := classify.Classify(absPath, s.categories)
	price := classify.ResolvePrice(res.Category, s.categories, res.ParentCategory)

	asset := &database.MediaAsset{
		AbsPath:        absPath,
		RelPath:        relPath,
		Extension:      ext,
		Title:          res.Title,
		Category:       res.Category,
		ParentCategory: res.ParentCategory,
		Collection:     res.Collection,
		Price:          price,
		MimeType:       mediatypes.StreamMime(absPath),
	}

	created, err := s.db.CreateAsset(ctx, asset)
	if err != nil {
		return false, err
	}
	if created {
		metrics.ScannerAssetsImported.Inc()
		logging.Debug("Imported %s as %q [%s]", relPath, res.Title, res.Category)
	} else {
		logging.Debug("Already imported: %s", relPath)
	}
	return created, nil
}

// ScanFolders lists top-level library folders with imported asset counts.
func (s *Scanner) ScanFolders(ctx context.Context) ([]database.ScanFolder, error) {
	return s.db.ScanFolders(ctx)
}

// Start launches the periodic background scan runner.
func (s *Scanner) Start() {
	metrics.ScannerRunning.Set(1)
	go s.run()
}

// Stop halts the background runner. Safe to call more than once.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		metrics.ScannerRunning.Set(0)
	})
}

func (s *Scanner) run() {
	// Drain any scan left unfinished by a previous run before the first tick.
	s.runToCompletion()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runToCompletion()
		}
	}
}

// runToCompletion processes batches until the scan finishes or the runner
// is stopped.
func (s *Scanner) runToCompletion() {
	ctx := context.Background()
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		result, err := s.ProcessBatch(ctx)
		if err != nil {
			logging.Error("Background scan batch failed: %v", err)
			return
		}
		if result.Done {
			return
		}
	}
}
