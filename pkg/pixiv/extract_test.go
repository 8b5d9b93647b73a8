package pixiv

import (
	"testing"

	"pixivsync/pkg/errors"
)

func validRaw() RawIllust {
	raw := RawIllust{
		ID:         123,
		Title:      "title",
		CreateDate: "2024-01-01T00:00:00+09:00",
		Width:      1920,
		Height:     1080,
		User:       RawUser{ID: 100, Name: "alice"},
		Tags: []RawTag{
			{Name: "風景", TranslatedName: "scenery"},
			{Name: "oc"},
		},
	}
	raw.MetaSinglePage.OriginalImageURL = "https://i.pximg.net/img/123_p0.png"
	return raw
}

func TestExtractIllustSinglePage(t *testing.T) {
	il, err := ExtractIllust(validRaw())
	if err != nil {
		t.Fatalf("ExtractIllust failed: %v", err)
	}

	if il.ID != "123" {
		t.Errorf("ID = %q", il.ID)
	}
	if il.AuthorID != "100" || il.AuthorName != "alice" {
		t.Errorf("Author = %s/%s", il.AuthorID, il.AuthorName)
	}
	if len(il.Images) != 1 || il.Images[0].URL != "https://i.pximg.net/img/123_p0.png" {
		t.Errorf("Images = %v", il.Images)
	}
	if il.Images[0].Fetched {
		t.Error("New image must start unfetched")
	}
	if len(il.Tags) != 2 || il.Tags[0].Translation != "scenery" {
		t.Errorf("Tags = %v", il.Tags)
	}
}

func TestExtractIllustMultiPage(t *testing.T) {
	raw := validRaw()
	raw.MetaSinglePage.OriginalImageURL = ""
	raw.MetaPages = make([]MetaPage, 3)
	for i := range raw.MetaPages {
		raw.MetaPages[i].ImageURLs.Original = "https://i.pximg.net/img/123_p" + string(rune('0'+i)) + ".png"
	}

	il, err := ExtractIllust(raw)
	if err != nil {
		t.Fatalf("ExtractIllust failed: %v", err)
	}
	if len(il.Images) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(il.Images))
	}
	// Page order must be preserved
	for i, image := range il.Images {
		want := "https://i.pximg.net/img/123_p" + string(rune('0'+i)) + ".png"
		if image.URL != want {
			t.Errorf("Image %d URL = %q, want %q", i, image.URL, want)
		}
	}
}

func TestExtractIllustMalformed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawIllust)
	}{
		{"no id", func(r *RawIllust) { r.ID = 0 }},
		{"no title", func(r *RawIllust) { r.Title = "" }},
		{"no create time", func(r *RawIllust) { r.CreateDate = "" }},
		{"no author id", func(r *RawIllust) { r.User.ID = 0 }},
		{"no author name", func(r *RawIllust) { r.User.Name = "" }},
		{"no images", func(r *RawIllust) {
			r.MetaSinglePage.OriginalImageURL = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mutate(&raw)
			_, err := ExtractIllust(raw)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.IsType(err, errors.ErrorTypeMalformedItem) {
				t.Errorf("Expected malformed item error, got %v", err)
			}
		})
	}
}

func TestExtractTagsSkipsUnnamed(t *testing.T) {
	raw := validRaw()
	raw.Tags = []RawTag{{Name: ""}, {Name: "kept"}}

	il, err := ExtractIllust(raw)
	if err != nil {
		t.Fatalf("ExtractIllust failed: %v", err)
	}
	if len(il.Tags) != 1 || il.Tags[0].Name != "kept" {
		t.Errorf("Tags = %v", il.Tags)
	}
}

func TestParseMaxBookmarkID(t *testing.T) {
	cases := []struct {
		nextURL string
		want    string
		ok      bool
	}{
		{"https://app-api.pixiv.net/v1/user/bookmarks/illust?restrict=public&max_bookmark_id=12345", "12345", true},
		{"https://app-api.pixiv.net/v1/user/bookmarks/illust?max_bookmark_id=7&restrict=public", "7", true},
		{"https://app-api.pixiv.net/v1/user/bookmarks/illust?restrict=public", "", false},
		{"https://app-api.pixiv.net/v1/user/illusts?offset=30", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseMaxBookmarkID(tc.nextURL)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseMaxBookmarkID(%q) = %q/%v, want %q/%v", tc.nextURL, got, ok, tc.want, tc.ok)
		}
	}
}
