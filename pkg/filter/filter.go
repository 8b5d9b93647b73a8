// Package filter implements the include/exclude content-filtering policy.
//
// The decision is a pure function of the configured rules and one illust
// record; callers persist the result onto the record's deleted flag.
package filter

import (
	"pixivsync/pkg/config"
	"pixivsync/pkg/syncdb"
)

// IsExcluded decides whether an illust is excluded by the configured rules.
//
// Two fact sets are gathered from the illust: "authors" (author id and name)
// and "tags" (every tag's name and translation). If any include rule is
// configured, the illust must intersect at least one configured include
// dimension or it is excluded. Independently, intersecting any configured
// exclude dimension also excludes it. Both checks always run; a passed
// include does not override a matched exclude.
func IsExcluded(rules config.FilterConfig, il *syncdb.Illust) bool {
	facts := gatherFacts(il)

	if len(rules.Includes) > 0 {
		matched := false
		configured := false
		for key, values := range rules.Includes {
			if _, ok := facts[key]; !ok {
				continue
			}
			configured = true
			if intersects(facts[key], values) {
				matched = true
				break
			}
		}
		if configured && !matched {
			return true
		}
	}

	for key, values := range rules.Excludes {
		if _, ok := facts[key]; !ok {
			continue
		}
		if intersects(facts[key], values) {
			return true
		}
	}

	return false
}

// gatherFacts collects the matchable values of an illust. Only populated
// fields contribute; both fact sets are always present, possibly empty.
func gatherFacts(il *syncdb.Illust) map[string][]string {
	var authors []string
	if il.AuthorID != "" {
		authors = append(authors, il.AuthorID)
	}
	if il.AuthorName != "" {
		authors = append(authors, il.AuthorName)
	}

	var tags []string
	for _, tag := range il.Tags {
		if tag.Name != "" {
			tags = append(tags, tag.Name)
		}
		if tag.Translation != "" {
			tags = append(tags, tag.Translation)
		}
	}

	return map[string][]string{
		"authors": authors,
		"tags":    tags,
	}
}

func intersects(values, rule []string) bool {
	set := make(map[string]bool, len(rule))
	for _, r := range rule {
		set[r] = true
	}
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}
