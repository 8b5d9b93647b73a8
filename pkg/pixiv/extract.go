package pixiv

import (
	"strconv"

	"pixivsync/pkg/errors"
	"pixivsync/pkg/syncdb"
)

// ExtractIllust converts one raw API item into the sync database shape.
// An item missing any required field (id, title, author, at least one image)
// is reported as malformed and skipped by the caller.
func ExtractIllust(raw RawIllust) (*syncdb.Illust, error) {
	var images []syncdb.Image
	if raw.MetaSinglePage.OriginalImageURL != "" {
		images = append(images, syncdb.Image{URL: raw.MetaSinglePage.OriginalImageURL})
	} else {
		for _, page := range raw.MetaPages {
			if page.ImageURLs.Original != "" {
				images = append(images, syncdb.Image{URL: page.ImageURLs.Original})
			}
		}
	}

	il := &syncdb.Illust{
		ID:         strconv.FormatInt(raw.ID, 10),
		Title:      raw.Title,
		CreateTime: raw.CreateDate,
		AuthorID:   strconv.FormatInt(raw.User.ID, 10),
		AuthorName: raw.User.Name,
		Tags:       extractTags(raw.Tags),
		Width:      raw.Width,
		Height:     raw.Height,
		Images:     images,
	}

	switch {
	case raw.ID == 0:
		return nil, errors.New(errors.ErrorTypeMalformedItem, "illust has no id")
	case il.Title == "":
		return nil, errors.New(errors.ErrorTypeMalformedItem, "illust %s has no title", il.ID)
	case il.CreateTime == "":
		return nil, errors.New(errors.ErrorTypeMalformedItem, "illust %s has no create time", il.ID)
	case raw.User.ID == 0 || il.AuthorName == "":
		return nil, errors.New(errors.ErrorTypeMalformedItem, "illust %s has no author", il.ID)
	case len(il.Images) == 0:
		return nil, errors.New(errors.ErrorTypeMalformedItem, "illust %s has no images", il.ID)
	}

	return il, nil
}

// extractTags keeps named tags in source order; translations are optional.
func extractTags(raw []RawTag) []syncdb.Tag {
	tags := make([]syncdb.Tag, 0, len(raw))
	for _, t := range raw {
		if t.Name == "" {
			continue
		}
		tags = append(tags, syncdb.Tag{
			Name:        t.Name,
			Translation: t.TranslatedName,
		})
	}
	return tags
}
