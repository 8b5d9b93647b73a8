package syncdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pixivsync/pkg/errors"
)

// Store is the persistent synchronization database: the ground truth of what
// is known and fetched. The whole in-memory document is guarded by one
// coarse mutex; public methods are single-entry and never call each other
// while holding the lock, so a plain sync.Mutex suffices.
type Store struct {
	path string
	mu   sync.Mutex
	doc  document
}

// Open loads an existing sync database or initializes an empty one. The two
// top-level record collections are always present after Open. A file that
// exists but does not parse as the expected document shape yields a
// corrupt-store error.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	s := &Store{path: abs}

	data, err := os.ReadFile(abs)
	switch {
	case os.IsNotExist(err):
		// Fresh database
	case err != nil:
		return nil, errors.New(errors.ErrorTypeCorruptStore, "failed to read database %s: %v", abs, err)
	default:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, errors.New(errors.ErrorTypeCorruptStore, "database malformed: %s: %v", abs, err)
		}
	}

	if s.doc.Illusts == nil {
		s.doc.Illusts = make(map[string]*Illust)
	}
	if s.doc.Users == nil {
		s.doc.Users = make(map[string]*User)
	}

	return s, nil
}

// Path returns the absolute path of the persisted database file.
func (s *Store) Path() string {
	return s.path
}

// GetIllust returns a copy of the illust record, or false if unknown.
func (s *Store) GetIllust(illustID string) (*Illust, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	il, ok := s.doc.Illusts[illustID]
	if !ok {
		return nil, false
	}
	return il.clone(), true
}

// HasIllust reports whether the illust id is already known.
func (s *Store) HasIllust(illustID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.doc.Illusts[illustID]
	return ok
}

// UpsertIllust inserts a copy of the record, or shallow-merges it into an
// existing entry. Merging only adds or overwrites populated fields and never
// removes data: empty strings, zero dimensions and nil slices leave the
// stored values untouched. The Deleted flag is managed separately through
// SetIllustDeleted so that a merge cannot silently resurrect an exclusion.
func (s *Store) UpsertIllust(il Illust) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.doc.Illusts[il.ID]
	if !ok {
		cp := il.clone()
		s.doc.Illusts[il.ID] = cp
		return
	}

	if il.Title != "" {
		existing.Title = il.Title
	}
	if il.CreateTime != "" {
		existing.CreateTime = il.CreateTime
	}
	if il.UpdateTime != "" {
		existing.UpdateTime = il.UpdateTime
	}
	if il.AuthorID != "" {
		existing.AuthorID = il.AuthorID
	}
	if il.AuthorName != "" {
		existing.AuthorName = il.AuthorName
	}
	if il.Width != 0 {
		existing.Width = il.Width
	}
	if il.Height != 0 {
		existing.Height = il.Height
	}
	if il.Tags != nil {
		existing.Tags = append([]Tag(nil), il.Tags...)
	}
	if il.Images != nil {
		existing.Images = append([]Image(nil), il.Images...)
	}
}

// SetIllustDeleted marks or unmarks an illust as excluded.
func (s *Store) SetIllustDeleted(illustID string, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	il, ok := s.doc.Illusts[illustID]
	if !ok {
		return errors.New(errors.ErrorTypeNotFound, "illust not found: %s", illustID)
	}
	il.Deleted = deleted
	return nil
}

// SetImageFetched flips the fetched flag of one image, addressed by its
// position within the illust. A missing illust or an out-of-range index is
// a store inconsistency and reported as not-found.
func (s *Store) SetImageFetched(illustID string, imageIndex int, fetched bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	il, ok := s.doc.Illusts[illustID]
	if !ok {
		return errors.New(errors.ErrorTypeNotFound, "illust not found: %s", illustID)
	}
	if imageIndex < 0 || imageIndex >= len(il.Images) {
		return errors.New(errors.ErrorTypeNotFound,
			"image index %d out of range for illust %s (%d images)",
			imageIndex, illustID, len(il.Images))
	}
	il.Images[imageIndex].Fetched = fetched
	return nil
}

// IllustIDs returns a sorted snapshot of all known illust ids.
func (s *Store) IllustIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.doc.Illusts))
	for id := range s.doc.Illusts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetUser returns a copy of the user record, or false if unknown.
func (s *Store) GetUser(userID string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.doc.Users[userID]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// UpsertUser inserts or shallow-merges a user record.
func (s *Store) UpsertUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.doc.Users[u.ID]
	if !ok {
		cp := u
		s.doc.Users[u.ID] = &cp
		return
	}
	if u.Name != "" {
		existing.Name = u.Name
	}
}

// Token returns the stored OAuth token, or nil when not logged in.
func (s *Store) Token() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Token == nil {
		return nil
	}
	cp := *s.doc.Token
	return &cp
}

// SetToken stores the OAuth token blob.
func (s *Store) SetToken(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.doc.Token = &cp
}

// Save serializes the whole document. An existing file at the target path is
// first renamed to a timestamped backup so the previous, complete content is
// always preserved; backups beyond the maxBackups most recent are pruned.
// The new content is written to a temporary file and renamed into place, so
// the canonical file is never observed half-written.
func (s *Store) Save(maxBackups int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to serialize database: %w", err)
	}

	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		// Rotate the previous database to a new backup
		now := time.Now()
		suffix := fmt.Sprintf("%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/1000)
		backupName := fmt.Sprintf("%s-%s", base, suffix)
		if err := os.Rename(s.path, filepath.Join(dir, backupName)); err != nil {
			return fmt.Errorf("failed to rotate database backup: %w", err)
		}

		if err := pruneBackups(dir, base, maxBackups); err != nil {
			return fmt.Errorf("failed to prune database backups: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary database file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync database file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close database file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace database file: %w", err)
	}

	return nil
}

// pruneBackups deletes all but the maxBackups most recent backups of base in
// dir. The timestamp suffix sorts lexicographically in chronological order.
func pruneBackups(dir, base string, maxBackups int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	prefix := base + "-"
	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, prefix) && name != base {
			backups = append(backups, name)
		}
	}
	sort.Strings(backups)

	for i := 0; i < len(backups)-maxBackups; i++ {
		if err := os.Remove(filepath.Join(dir, backups[i])); err != nil {
			return err
		}
	}
	return nil
}
