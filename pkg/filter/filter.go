// Package filter provides the author/tag/date predicates shared by the
// coordinator's upgrade-filtering and the interactive browser's search.
package filter

import (
	"time"

	"github.com/go-wandern/wandern/pkg/provider"
)

// Predicate narrows a set of applied revisions. It is also used against
// the in-memory revision set for the combined browse listing.
type Predicate struct {
	Author string
	Tags   []string
	Since  time.Time
}

// IsZero reports whether p applies no restriction at all.
func (p Predicate) IsZero() bool {
	return p.Author == "" && len(p.Tags) == 0 && p.Since.IsZero()
}

// ToListFilter adapts a Predicate to a provider.ListFilter for use against
// a provider's applied-history table.
func (p Predicate) ToListFilter() provider.ListFilter {
	return provider.ListFilter{Author: p.Author, Tags: p.Tags, Since: p.Since}
}

// MatchAuthor reports whether p's author restriction (if any) matches
// author.
func (p Predicate) MatchAuthor(author string) bool {
	return p.Author == "" || p.Author == author
}

// MatchTags reports whether p's tag restriction (if any) has a non-empty
// intersection with tags. No restriction always matches.
func (p Predicate) MatchTags(tags []string) bool {
	if len(p.Tags) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(p.Tags))
	for _, t := range p.Tags {
		want[t] = struct{}{}
	}
	for _, t := range tags {
		if _, ok := want[t]; ok {
			return true
		}
	}
	return false
}

// MatchSince reports whether createdAt is at or after p's Since restriction.
// No restriction always matches.
func (p Predicate) MatchSince(createdAt time.Time) bool {
	return p.Since.IsZero() || !createdAt.Before(p.Since)
}

// Match reports whether every restriction on p is satisfied.
func (p Predicate) Match(author string, tags []string, createdAt time.Time) bool {
	return p.MatchAuthor(author) && p.MatchTags(tags) && p.MatchSince(createdAt)
}
