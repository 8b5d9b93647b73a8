package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"pixivsync/pkg/logger"
)

// FetchResult represents the outcome of one download job
type FetchResult struct {
	Job      FetchJob
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// ImageFetcher fetches the raw bytes of one image
type ImageFetcher interface {
	Download(url string) ([]byte, error)
}

// FetchedMarker records a verified successful write back into the sync
// database. The marker takes the store lock only for this brief step, never
// across I/O.
type FetchedMarker interface {
	SetImageFetched(illustID string, imageIndex int, fetched bool) error
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan FetchJob
	resultQueue chan FetchResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ImageFetcher
	marker      FetchedMarker
	remaining   int64
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(numWorkers int, fetcher ImageFetcher, marker FetchedMarker, log logger.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan FetchJob, numWorkers*2),
		resultQueue: make(chan FetchResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		marker:      marker,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.WithField("num_workers", wp.numWorkers).Debug("Starting worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for workers to drain it, then closes the
// result queue.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job FetchJob) error {
	select {
	case wp.jobQueue <- job:
		atomic.AddInt64(&wp.remaining, 1)
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan FetchResult {
	return wp.resultQueue
}

// Remaining returns the number of submitted jobs not yet completed
func (wp *WorkerPool) Remaining() int {
	return int(atomic.LoadInt64(&wp.remaining))
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob handles a single download job: ensure the parent directory,
// fetch the bytes, write the file, then mark completion in the store. A
// failure leaves no partial file behind and is not retried within this run;
// the image stays unfetched and is rebuilt into the job list next time.
func (wp *WorkerPool) processJob(job FetchJob, workerID int) FetchResult {
	start := time.Now()
	result := FetchResult{Job: job}

	fail := func(err error) FetchResult {
		// Best-effort removal of a partially-written file
		os.Remove(job.FilePath)
		atomic.AddInt64(&wp.remaining, -1)
		result.Error = err
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Failed to download image", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"error":     err.Error(),
		})
		return result
	}

	if err := os.MkdirAll(filepath.Dir(job.FilePath), 0755); err != nil {
		return fail(fmt.Errorf("failed to create directory: %w", err))
	}

	data, err := wp.fetcher.Download(job.URL)
	if err != nil {
		return fail(fmt.Errorf("download failed: %w", err))
	}
	result.Size = len(data)

	if err := os.WriteFile(job.FilePath, data, 0644); err != nil {
		return fail(fmt.Errorf("write failed: %w", err))
	}

	if err := wp.marker.SetImageFetched(job.IllustID, job.ImageIndex, true); err != nil {
		// A marking failure means the store and the jobs disagree; treat
		// the job as failed so the inconsistency is visible.
		return fail(fmt.Errorf("failed to mark image fetched: %w", err))
	}

	remaining := atomic.AddInt64(&wp.remaining, -1)
	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.InfoWithFields("Downloaded image", map[string]interface{}{
		"worker_id": workerID,
		"url":       job.URL,
		"size":      result.Size,
		"remaining": remaining,
	})
	return result
}
