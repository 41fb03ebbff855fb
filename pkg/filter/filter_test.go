package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatch_NoRestrictionsMatchesAnything(t *testing.T) {
	var p Predicate
	assert.True(t, p.Match("anyone", []string{"x"}, time.Now()))
	assert.True(t, p.IsZero())
}

func TestMatchAuthor(t *testing.T) {
	p := Predicate{Author: "jane"}
	assert.True(t, p.MatchAuthor("jane"))
	assert.False(t, p.MatchAuthor("john"))
}

func TestMatchTags_Intersection(t *testing.T) {
	p := Predicate{Tags: []string{"feature"}}
	assert.True(t, p.MatchTags([]string{"feature", "backend"}))
	assert.False(t, p.MatchTags([]string{"bugfix"}))
}

func TestMatchSince_Monotonic(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Predicate{Since: cutoff}

	assert.True(t, p.MatchSince(cutoff))
	assert.True(t, p.MatchSince(cutoff.Add(time.Hour)))
	assert.False(t, p.MatchSince(cutoff.Add(-time.Hour)))
}
