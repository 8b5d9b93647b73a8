package syncer

import (
	"os"
	"path/filepath"

	"pixivsync/internal/downloader"
	"pixivsync/pkg/filter"
)

// RemoveExcluded finds every not-yet-deleted illust that the current filter
// rules now exclude and removes it from disk, unless simulate is set, in
// which case only the candidate ids are returned.
func (s *Syncer) RemoveExcluded(simulate bool) ([]string, error) {
	var candidates []string

	for _, illustID := range s.db.IllustIDs() {
		il, ok := s.db.GetIllust(illustID)
		if !ok || il.Deleted {
			continue
		}
		if filter.IsExcluded(s.cfg.Filter, il) {
			candidates = append(candidates, illustID)
		}
	}

	s.logger.WithField("count", len(candidates)).Info("Found illusts to remove")

	if !simulate {
		s.Remove(candidates)
	}
	return candidates, nil
}

// Counts classifies every known illust and image path by its deleted flag
// and on-disk presence.
type Counts struct {
	Illusts          []string
	DeletedIllusts   []string
	Images           []string
	DeletedImages    []string
	NotExistImages   []string
	NotDeletedImages []string
}

// Summary returns the bucket sizes keyed by name.
func (c Counts) Summary() map[string]int {
	return map[string]int{
		"illust":             len(c.Illusts),
		"deleted_illust":     len(c.DeletedIllusts),
		"images":             len(c.Images),
		"deleted_images":     len(c.DeletedImages),
		"not_exist_images":   len(c.NotExistImages),
		"not_deleted_images": len(c.NotDeletedImages),
	}
}

// Count inspects the sync database against the download directory. Images of
// live illusts are expected on disk; images of deleted illusts are expected
// absent. The not_exist and not_deleted buckets collect the mismatches.
func (s *Syncer) Count() (Counts, error) {
	var counts Counts

	downloadDir, err := filepath.Abs(s.cfg.Download.Dir)
	if err != nil {
		return counts, err
	}

	for _, illustID := range s.db.IllustIDs() {
		il, ok := s.db.GetIllust(illustID)
		if !ok {
			continue
		}

		if il.Deleted {
			counts.DeletedIllusts = append(counts.DeletedIllusts, illustID)
		} else {
			counts.Illusts = append(counts.Illusts, illustID)
		}

		parentDir, _ := downloader.IllustDir(downloadDir, il)
		for _, image := range il.Images {
			filePath := filepath.Join(parentDir, downloader.FileName(image.URL))
			_, statErr := os.Stat(filePath)
			exists := statErr == nil

			switch {
			case exists && !il.Deleted:
				counts.Images = append(counts.Images, filePath)
			case exists && il.Deleted:
				counts.NotDeletedImages = append(counts.NotDeletedImages, filePath)
			case !exists && il.Deleted:
				counts.DeletedImages = append(counts.DeletedImages, filePath)
			default:
				counts.NotExistImages = append(counts.NotExistImages, filePath)
			}
		}
	}

	return counts, nil
}
