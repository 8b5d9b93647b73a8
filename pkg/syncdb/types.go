package syncdb

// Tag is one illustration tag, in source order. Duplicates are permitted.
type Tag struct {
	Name        string `json:"name"`
	Translation string `json:"translation,omitempty"`
	Romaji      string `json:"romaji,omitempty"`
}

// Image is a single page of an illustration. URL is the source of truth for
// both the remote location and the derived local file name (last path
// segment). Fetched becomes true only after a verified successful write to
// disk.
type Image struct {
	URL     string `json:"url"`
	Fetched bool   `json:"fetched,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Illust is one illustration record. The Images slice is positional ground
// truth: file naming and fetch-job association depend on the index, so the
// slice must never be reordered once populated.
type Illust struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	CreateTime string  `json:"create_time"`
	UpdateTime string  `json:"update_time,omitempty"`
	AuthorID   string  `json:"author_id"`
	AuthorName string  `json:"author_name"`
	Tags       []Tag   `json:"tags"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Images     []Image `json:"images"`

	// Deleted marks the illust as excluded from download and eligible for
	// removal from disk. The record itself is retained so exclusion
	// decisions stay idempotent and reversible.
	Deleted bool `json:"_deleted,omitempty"`
}

// User is an auxiliary user record, same shape rules as Illust.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Token is the persisted OAuth token blob obtained via login.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}

// document is the persisted file layout: exactly the two top-level record
// collections, plus the optional token blob.
type document struct {
	Illusts map[string]*Illust `json:"illusts"`
	Users   map[string]*User   `json:"users"`
	Token   *Token             `json:"token,omitempty"`
}

// clone returns a deep copy of an Illust so callers never alias the stored
// slices.
func (il *Illust) clone() *Illust {
	cp := *il
	if il.Tags != nil {
		cp.Tags = make([]Tag, len(il.Tags))
		copy(cp.Tags, il.Tags)
	}
	if il.Images != nil {
		cp.Images = make([]Image, len(il.Images))
		copy(cp.Images, il.Images)
	}
	return &cp
}
