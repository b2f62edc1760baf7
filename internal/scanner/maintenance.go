package scanner

import (
	"context"
	"sync"
	"sync/atomic"

	"streampay/internal/classify"
	"streampay/internal/database"
	"streampay/internal/logging"
	"streampay/internal/mediatypes"
	"streampay/internal/metrics"
	"streampay/internal/workers"
)

// maintenancePageSize is how many assets each reclassification query pulls.
const maintenancePageSize = 200

// SmartOrganize re-classifies assets that previously fell through to the
// default category. Assets already assigned a real category are left alone,
// so a manual correction survives the pass.
func (s *Scanner) SmartOrganize(ctx context.Context) (*MaintenanceResult, error) {
	return s.reclassify(ctx, func(a *database.MediaAsset) bool {
		return a.Category == classify.DefaultCategory
	})
}

// ReorganizeAll re-classifies every asset against the current category
// hierarchy, overwriting earlier classification decisions.
func (s *Scanner) ReorganizeAll(ctx context.Context) (*MaintenanceResult, error) {
	return s.reclassify(ctx, func(*database.MediaAsset) bool { return true })
}

func (s *Scanner) reclassify(ctx context.Context, eligible func(*database.MediaAsset) bool) (*MaintenanceResult, error) {
	result := &MaintenanceResult{}
	var afterID int64

	for {
		assets, err := s.db.ListAssetsAfter(ctx, afterID, maintenancePageSize)
		if err != nil {
			return nil, err
		}
		if len(assets) == 0 {
			break
		}
		afterID = assets[len(assets)-1].ID

		for _, a := range assets {
			if !eligible(a) {
				continue
			}
			result.Examined++

			res := classify.Classify(a.AbsPath, s.categories)
			price := classify.ResolvePrice(res.Category, s.categories, res.ParentCategory)

			if res.Title == a.Title && res.Category == a.Category &&
				res.ParentCategory == a.ParentCategory &&
				res.Collection == a.Collection && price == a.Price {
				continue
			}

			err := s.db.UpdateAssetClassification(ctx, a.ID,
				res.Title, res.Category, res.ParentCategory, res.Collection, price)
			if err != nil {
				logging.Warn("Reclassify failed for asset %d (%s): %v", a.ID, a.RelPath, err)
				result.Failed++
				continue
			}
			result.Updated++
			logging.Debug("Reclassified %s: %q [%s] -> %q [%s]",
				a.RelPath, a.Title, a.Category, res.Title, res.Category)
		}
	}

	logging.Info("Reclassification pass: examined %d, updated %d, failed %d",
		result.Examined, result.Updated, result.Failed)
	return result, nil
}

// FixMetadata backfills duration and mime type for assets that were
// imported without them. Probing is I/O-bound, so files are probed by a
// small worker pool rather than one at a time.
func (s *Scanner) FixMetadata(ctx context.Context) (*MaintenanceResult, error) {
	if s.prober == nil {
		logging.Warn("FixMetadata requested but no prober is configured")
		return &MaintenanceResult{}, nil
	}

	assets, err := s.db.ListAssetsMissingMetadata(ctx, 1000)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return &MaintenanceResult{}, nil
	}

	numWorkers := workers.ForIO(8)
	logging.Info("Fixing metadata for %d assets with %d workers", len(assets), numWorkers)

	var updated, failed atomic.Int64
	jobs := make(chan *database.MediaAsset)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				duration, err := s.prober.Duration(ctx, a.PlayablePath())
				if err != nil {
					metrics.ProbeFailures.Inc()
					logging.Warn("Probe failed for %s: %v", a.RelPath, err)
					failed.Add(1)
					continue
				}

				mime := a.MimeType
				if mime == "" {
					mime = mediatypes.StreamMime(a.PlayablePath())
				}
				if err := s.db.UpdateAssetMetadata(ctx, a.ID, mime, duration); err != nil {
					logging.Warn("Metadata update failed for asset %d: %v", a.ID, err)
					failed.Add(1)
					continue
				}
				updated.Add(1)
			}
		}()
	}

	for _, a := range assets {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- a:
		}
	}
	close(jobs)
	wg.Wait()

	result := &MaintenanceResult{
		Examined: len(assets),
		Updated:  int(updated.Load()),
		Failed:   int(failed.Load()),
	}
	logging.Info("Metadata fix: examined %d, updated %d, failed %d",
		result.Examined, result.Updated, result.Failed)
	return result, nil
}
