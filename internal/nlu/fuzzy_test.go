package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatioExactSubstring(t *testing.T) {
	// The shorter string aligns perfectly inside the longer one.
	assert.Equal(t, 100, PartialRatio("conan", "tôi tìm truyện conan tập 5"))
	assert.Equal(t, 100, PartialRatio("tôi tìm truyện conan tập 5", "conan"))
}

func TestPartialRatioIdentical(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("harry potter", "harry potter"))
}

func TestPartialRatioCaseAndPunctuation(t *testing.T) {
	// Normalization runs before scoring, so case and punctuation are free.
	assert.Equal(t, 100, PartialRatio("Harry Potter!", "harry potter"))
}

func TestPartialRatioEmpty(t *testing.T) {
	assert.Equal(t, 0, PartialRatio("", "conan"))
	assert.Equal(t, 0, PartialRatio("conan", ""))
}

func TestPartialRatioDisjoint(t *testing.T) {
	score := PartialRatio("xyz", "conan truyện trinh thám")
	assert.Less(t, score, 40)
}

func TestPartialRatioNearMiss(t *testing.T) {
	// One dropped letter stays well above the title threshold.
	score := PartialRatio("harry poter", "harry potter")
	assert.GreaterOrEqual(t, score, DefaultTitleThreshold)
	assert.Less(t, score, 100)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), "%q vs %q", tt.a, tt.b)
	}
}

func TestBestPartialMatchPrefersEarlierOnTie(t *testing.T) {
	best, score := bestPartialMatch("conan", []string{"conan tập 1", "conan tập 2"})
	assert.Equal(t, "conan tập 1", best)
	assert.Equal(t, 100, score)
}
