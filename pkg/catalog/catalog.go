// Package catalog implements incremental discovery of remote illustrations:
// pagination over author listings and bookmark streams, deduplication against
// the sync database, and filter evaluation for every stored record.
package catalog

import (
	"regexp"
	"strconv"

	"pixivsync/pkg/config"
	"pixivsync/pkg/errors"
	"pixivsync/pkg/filter"
	"pixivsync/pkg/logger"
	"pixivsync/pkg/pixiv"
	"pixivsync/pkg/syncdb"
)

// Client is the remote catalog capability the sync engine consumes. Both the
// app-API transport and any scraping transport satisfy it.
type Client interface {
	// UserIllusts lists one page of an author's illustrations at the given
	// offset. An empty page terminates the listing.
	UserIllusts(authorID string, offset int) ([]pixiv.RawIllust, error)
	// UserBookmarks lists one page of bookmarked illustrations and returns
	// the provider's next-page link ("" for the last page).
	UserBookmarks(visibility, maxBookmarkID string) ([]pixiv.RawIllust, string, error)
	// Authenticated reports whether bookmark listing is available.
	Authenticated() bool
}

// authorIDPatterns recognize author references: a bare numeric id or a
// profile URL. First match wins.
var authorIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+)$`),
	regexp.MustCompile(`^https?://www\.pixiv\.net/users/(\d+)`),
}

// ResolveAuthorRef extracts the author id from a configured reference. An
// unresolvable reference is a configuration error.
func ResolveAuthorRef(ref string) (string, error) {
	for _, pattern := range authorIDPatterns {
		if m := pattern.FindStringSubmatch(ref); m != nil {
			return m[1], nil
		}
	}
	return "", errors.New(errors.ErrorTypeConfig, "no author ID can be recognized from: %s", ref)
}

// Sync discovers new illustrations and keeps the deleted flags of known ones
// in line with the current filter rules.
type Sync struct {
	db     *syncdb.Store
	client Client
	rules  config.FilterConfig
	logger logger.Logger
}

// New creates a catalog synchronizer over the given store and client.
func New(db *syncdb.Store, client Client, rules config.FilterConfig, log logger.Logger) *Sync {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Sync{db: db, client: client, rules: rules, logger: log}
}

// SyncAuthors pages through every configured author listing and stores the
// unknown illustrations. Unresolvable references abort before any author is
// pulled; a remote failure for one author is logged with its id and offset
// and does not abort the others.
func (s *Sync) SyncAuthors(authorRefs []string) error {
	// Resolve everything up front so a bad reference fails the run before
	// any mutation.
	authorIDs := make([]string, len(authorRefs))
	for i, ref := range authorRefs {
		id, err := ResolveAuthorRef(ref)
		if err != nil {
			return err
		}
		authorIDs[i] = id
	}

	for i, authorID := range authorIDs {
		s.logger.WithField("author", authorRefs[i]).Info("Pulling illusts from author")

		offset := 0
		discovered := 0
		err := func() error {
			for {
				illusts, err := s.client.UserIllusts(authorID, offset)
				if err != nil {
					return err
				}
				if len(illusts) == 0 {
					return nil
				}
				for _, raw := range illusts {
					if s.storeIllust(raw) {
						discovered++
					}
				}
				offset += len(illusts)
			}
		}()
		if err != nil {
			// Isolated: keep pulling the remaining authors
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"author_id": authorID,
				"offset":    offset,
			}).Error("Failed to list author illusts")
		}

		if discovered > 0 {
			logger.LogDiscovery("author:"+authorID, discovered)
		}
	}

	return nil
}

// SyncBookmarks pages through the bookmark stream of every configured
// visibility class, starting from the optional cursor override. Pagination
// stops on an empty page, on a page that yields no newly-discovered ids, or
// when the provider's next link is absent or carries no parsable cursor.
// Failures here are fatal for the visibility's loop.
func (s *Sync) SyncBookmarks(favourites []string, maxBookmarkID string) error {
	for _, fav := range favourites {
		if fav != "public" && fav != "private" {
			return errors.New(errors.ErrorTypeConfig, "unknown favourite type: %s", fav)
		}
	}

	if !s.client.Authenticated() {
		s.logger.Warn("User not logged in, bookmarks disabled")
		return nil
	}

	for _, fav := range favourites {
		cursor := maxBookmarkID
		discovered := 0

		for {
			s.logger.WithFields(map[string]interface{}{
				"visibility":      fav,
				"max_bookmark_id": cursor,
			}).Info("Pulling illusts from bookmarks")

			illusts, nextURL, err := s.client.UserBookmarks(fav, cursor)
			if err != nil {
				return err
			}
			if len(illusts) == 0 {
				break
			}

			pageDiscovered := 0
			for _, raw := range illusts {
				if s.storeIllust(raw) {
					pageDiscovered++
				}
			}
			discovered += pageDiscovered

			// A page of all-known ids terminates the loop: older pages
			// cannot contain anything new either.
			if pageDiscovered == 0 {
				break
			}
			logger.LogDiscovery("bookmarks:"+fav, pageDiscovered)

			if nextURL == "" {
				break
			}
			next, ok := pixiv.ParseMaxBookmarkID(nextURL)
			if !ok {
				// Defensive termination when the link carries no cursor
				s.logger.WithField("next_url", nextURL).Warn("No bookmark cursor in next link, stopping")
				break
			}
			cursor = next
		}

		if discovered > 0 {
			s.logger.WithFields(map[string]interface{}{
				"visibility": fav,
				"discovered": discovered,
			}).Info("Bookmark pull finished")
		}
	}

	return nil
}

// Refilter re-evaluates the deleted flag of every known illust against the
// current rules, so a configuration change retroactively excludes or
// includes previously-synced items.
func (s *Sync) Refilter() error {
	for _, id := range s.db.IllustIDs() {
		il, ok := s.db.GetIllust(id)
		if !ok {
			continue
		}
		if err := s.db.SetIllustDeleted(id, filter.IsExcluded(s.rules, il)); err != nil {
			return err
		}
	}
	return nil
}

// storeIllust records one raw item if its id is not yet known. Discovery is
// append-only: known ids are skipped without re-extraction or re-filtering.
// A malformed item is logged and skipped without aborting the page.
func (s *Sync) storeIllust(raw pixiv.RawIllust) bool {
	if s.db.HasIllust(strconv.FormatInt(raw.ID, 10)) {
		return false
	}

	il, err := pixiv.ExtractIllust(raw)
	if err != nil {
		s.logger.WithError(err).Warn("Skipping malformed illust")
		return false
	}

	il.Deleted = filter.IsExcluded(s.rules, il)
	s.db.UpsertIllust(*il)
	s.db.UpsertUser(syncdb.User{ID: il.AuthorID, Name: il.AuthorName})
	return true
}
