package downloader

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"pixivsync/pkg/logger"
	"pixivsync/pkg/syncdb"
)

// mockFetcher serves canned bytes and can fail specific URLs
type mockFetcher struct {
	failURLs      map[string]bool
	downloadCount int32
}

func (m *mockFetcher) Download(url string) ([]byte, error) {
	atomic.AddInt32(&m.downloadCount, 1)
	if m.failURLs[url] {
		return nil, fmt.Errorf("download error: %s", url)
	}
	return []byte("image data"), nil
}

func collectResults(pool *WorkerPool) (<-chan []FetchResult, func()) {
	out := make(chan []FetchResult, 1)
	go func() {
		var results []FetchResult
		for result := range pool.Results() {
			results = append(results, result)
		}
		out <- results
	}()
	return out, func() { pool.Stop() }
}

func TestWorkerPoolDownloadsAndMarks(t *testing.T) {
	db := newTestStore(t)
	dir := t.TempDir()

	db.UpsertIllust(syncdb.Illust{
		ID:         "1",
		AuthorName: "alice",
		Images: []syncdb.Image{
			{URL: "https://i.pximg.net/img/1_p0.png"},
			{URL: "https://i.pximg.net/img/1_p1.png"},
		},
	})

	fetcher := &mockFetcher{}
	pool := NewWorkerPool(3, fetcher, db, logger.NewTestLogger())
	pool.Start()

	out, stop := collectResults(pool)

	jobs := BuildJobs(db, dir)
	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Submit failed: %v", err)
		}
	}
	stop()
	results := <-out

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("Job %s failed: %v", result.Job.URL, result.Error)
		}
		data, err := os.ReadFile(result.Job.FilePath)
		if err != nil {
			t.Errorf("Missing downloaded file %s: %v", result.Job.FilePath, err)
		} else if string(data) != "image data" {
			t.Errorf("Unexpected file content: %q", data)
		}
	}

	il, _ := db.GetIllust("1")
	for i, image := range il.Images {
		if !image.Fetched {
			t.Errorf("Image %d not marked fetched", i)
		}
	}
	if pool.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", pool.Remaining())
	}
}

func TestWorkerPoolFailureLeavesNoPartialState(t *testing.T) {
	db := newTestStore(t)
	dir := t.TempDir()

	db.UpsertIllust(syncdb.Illust{
		ID:         "1",
		AuthorName: "alice",
		Images: []syncdb.Image{
			{URL: "https://i.pximg.net/img/1_p0.png"},
			{URL: "https://i.pximg.net/img/1_p1.png"},
		},
	})

	fetcher := &mockFetcher{
		failURLs: map[string]bool{"https://i.pximg.net/img/1_p0.png": true},
	}
	pool := NewWorkerPool(2, fetcher, db, logger.NewTestLogger())
	pool.Start()

	out, stop := collectResults(pool)
	for _, job := range BuildJobs(db, dir) {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Submit failed: %v", err)
		}
	}
	stop()
	results := <-out

	var failed *FetchResult
	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		} else {
			failed = &results[i]
		}
	}
	if succeeded != 1 || failed == nil {
		t.Fatalf("Expected 1 success and 1 failure, got %d/%d", succeeded, len(results)-succeeded)
	}

	// The failed job must leave no file and keep its fetched flag false
	if _, err := os.Stat(failed.Job.FilePath); !os.IsNotExist(err) {
		t.Error("Failed job left a file behind")
	}
	il, _ := db.GetIllust("1")
	if il.Images[0].Fetched {
		t.Error("Failed image must stay unfetched")
	}
	if !il.Images[1].Fetched {
		t.Error("Successful image must be marked fetched")
	}

	// A re-run only retries the failed image
	jobs := BuildJobs(db, dir)
	if len(jobs) != 1 || jobs[0].ImageIndex != 0 {
		t.Errorf("Expected a single retry job for image 0, got %v", jobs)
	}
	if pool.Remaining() != 0 {
		t.Errorf("Expected 0 remaining after failures, got %d", pool.Remaining())
	}
}

func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	db := newTestStore(t)
	dir := t.TempDir()

	const numIllusts = 40
	for i := 0; i < numIllusts; i++ {
		db.UpsertIllust(syncdb.Illust{
			ID:         fmt.Sprintf("%d", i),
			AuthorName: "alice",
			Images:     []syncdb.Image{{URL: fmt.Sprintf("https://i.pximg.net/img/%d_p0.png", i)}},
		})
	}

	fetcher := &mockFetcher{}
	pool := NewWorkerPool(4, fetcher, db, logger.NewTestLogger())
	pool.Start()

	out, stop := collectResults(pool)

	jobs := BuildJobs(db, dir)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j FetchJob) {
			defer wg.Done()
			if err := pool.Submit(j); err != nil {
				t.Errorf("Submit failed: %v", err)
			}
		}(job)
	}
	wg.Wait()
	stop()
	results := <-out

	if len(results) != numIllusts {
		t.Fatalf("Expected %d results, got %d", numIllusts, len(results))
	}
	if got := int(atomic.LoadInt32(&fetcher.downloadCount)); got != numIllusts {
		t.Errorf("Expected %d downloads, got %d", numIllusts, got)
	}
}
