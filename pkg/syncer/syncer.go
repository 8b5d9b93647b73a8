// Package syncer orchestrates the sync pipeline: catalog discovery, image
// fetching, removal and bookkeeping over one shared sync database.
package syncer

import (
	"os"
	"path/filepath"

	"pixivsync/internal/downloader"
	"pixivsync/pkg/catalog"
	"pixivsync/pkg/config"
	"pixivsync/pkg/logger"
	"pixivsync/pkg/syncdb"
)

// RemoteClient bundles the two remote capabilities the pipeline needs:
// catalog listing and raw image fetching.
type RemoteClient interface {
	catalog.Client
	downloader.ImageFetcher
}

// SyncOptions controls one Sync invocation
type SyncOptions struct {
	// ListOnly skips the download phase
	ListOnly bool
	// FetchOnly skips the discovery phase
	FetchOnly bool
	// MaxBookmarkID overrides the initial bookmark pagination cursor
	MaxBookmarkID string
}

// Syncer runs the sync pipeline
type Syncer struct {
	cfg    *config.Config
	db     *syncdb.Store
	client RemoteClient
	logger logger.Logger
}

// New creates a Syncer over the given store and remote client.
func New(cfg *config.Config, db *syncdb.Store, client RemoteClient, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Syncer{cfg: cfg, db: db, client: client, logger: log}
}

// Sync discovers new illustrations and downloads the pending images.
func (s *Syncer) Sync(opts SyncOptions) error {
	if !opts.FetchOnly {
		cs := catalog.New(s.db, s.client, s.cfg.Filter, s.logger)
		if err := cs.SyncAuthors(s.cfg.Sync.Authors); err != nil {
			return err
		}
		if err := cs.SyncBookmarks(s.cfg.Sync.Favourites, opts.MaxBookmarkID); err != nil {
			return err
		}
		if err := cs.Refilter(); err != nil {
			return err
		}
	}

	if !opts.ListOnly {
		if err := s.FetchImages(); err != nil {
			return err
		}
	}

	return nil
}

// FetchImages builds the pending job list and runs it on a bounded worker
// pool. Individual job failures are logged and left for the next run; they
// do not fail the call.
func (s *Syncer) FetchImages() error {
	downloadDir, err := filepath.Abs(s.cfg.Download.Dir)
	if err != nil {
		return err
	}

	jobs := downloader.BuildJobs(s.db, downloadDir)
	if len(jobs) == 0 {
		s.logger.Info("No images to fetch")
		return nil
	}

	s.logger.WithField("count", len(jobs)).Info("Fetching images")

	pool := downloader.NewWorkerPool(s.cfg.Download.Workers, s.client, s.db, s.logger)
	pool.Start()

	completed := 0
	failed := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			if result.Success {
				completed++
			} else {
				failed++
				logger.LogDownload(result.Job.URL, result.Job.FilePath, false, result.Error)
			}
		}
	}()

	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			s.logger.WithError(err).WithField("url", job.URL).Error("Failed to submit download job")
		}
	}

	pool.Stop()
	<-done

	s.logger.WithFields(map[string]interface{}{
		"completed": completed,
		"failed":    failed,
		"total":     len(jobs),
	}).Info("Fetch finished")

	return nil
}

// Remove deletes the fetched files of the given illusts from disk and marks
// the records excluded. The records themselves are retained, so removal is
// idempotent: re-running it against an already-removed illust only
// re-asserts the deleted flag.
func (s *Syncer) Remove(illustIDs []string) {
	downloadDir, err := filepath.Abs(s.cfg.Download.Dir)
	if err != nil {
		s.logger.WithError(err).Error("Failed to resolve download directory")
		return
	}

	for _, illustID := range illustIDs {
		il, ok := s.db.GetIllust(illustID)
		if !ok {
			continue
		}

		parentDir, dedicated := downloader.IllustDir(downloadDir, il)

		for i, image := range il.Images {
			if !image.Fetched {
				continue
			}
			filePath := filepath.Join(parentDir, downloader.FileName(image.URL))

			removed := false
			if _, err := os.Stat(filePath); os.IsNotExist(err) {
				// Already gone from disk
				removed = true
			} else if err := os.Remove(filePath); err != nil {
				// Leave the fetched flag set so a retry is possible
				s.logger.WithError(err).WithField("path", filePath).Error("Failed to remove file")
			} else {
				removed = true
				s.logger.WithField("path", filePath).Info("Removed file")
			}

			if removed {
				if err := s.db.SetImageFetched(illustID, i, false); err != nil {
					s.logger.WithError(err).Error("Failed to clear fetched flag")
				}
			}
		}

		if dedicated {
			if _, err := os.Stat(parentDir); err == nil {
				if err := os.RemoveAll(parentDir); err != nil {
					s.logger.WithError(err).WithField("path", parentDir).Error("Failed to remove directory")
				}
			}
		}

		if err := s.db.SetIllustDeleted(illustID, true); err != nil {
			s.logger.WithError(err).WithField("illust_id", illustID).Error("Failed to mark illust deleted")
		}
	}
}
