package downloader

import (
	"path/filepath"
	"sort"
	"strings"

	"pixivsync/pkg/syncdb"
)

// FetchJob represents a single pending image download
type FetchJob struct {
	FilePath   string
	URL        string
	IllustID   string
	ImageIndex int
}

// IllustDir returns the directory an illust's images are stored in and
// whether that directory is dedicated to the illust. Multi-image illusts get
// an id subdirectory so page file names cannot collide; single-image illusts
// stay flat under the author directory.
func IllustDir(downloadDir string, il *syncdb.Illust) (string, bool) {
	dir := filepath.Join(downloadDir, il.AuthorName)
	if len(il.Images) > 1 {
		return filepath.Join(dir, il.ID), true
	}
	return dir, false
}

// FileName derives the local file name from an image URL: its last path
// segment.
func FileName(imageURL string) string {
	if i := strings.LastIndex(imageURL, "/"); i >= 0 {
		return imageURL[i+1:]
	}
	return imageURL
}

// BuildJobs collects the pending download jobs: every image of every
// non-deleted illust whose fetched flag is still false. Already-fetched
// images are excluded here, which is what makes a re-run after a partial
// failure retry only the missing subset. Jobs are sorted by destination path
// for deterministic, resumable ordering.
func BuildJobs(db *syncdb.Store, downloadDir string) []FetchJob {
	var jobs []FetchJob

	for _, illustID := range db.IllustIDs() {
		il, ok := db.GetIllust(illustID)
		if !ok || il.Deleted {
			continue
		}

		parentDir, _ := IllustDir(downloadDir, il)
		for i, image := range il.Images {
			if image.Fetched {
				continue
			}
			jobs = append(jobs, FetchJob{
				FilePath:   filepath.Join(parentDir, FileName(image.URL)),
				URL:        image.URL,
				IllustID:   illustID,
				ImageIndex: i,
			})
		}
	}

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].FilePath < jobs[b].FilePath
	})
	return jobs
}
