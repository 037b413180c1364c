package nlu

import (
	"math"
	"unicode/utf8"
)

// =============================================================================
// PARTIAL SIMILARITY
// =============================================================================

// PartialRatio scores how well the shorter of two strings aligns against any
// equal-length window of the longer, 0-100. Both inputs are normalized first
// so punctuation and case differences do not count against the score. Used
// when exact and substring matching fail.
func PartialRatio(s1, s2 string) int {
	a := []rune(Normalize(s1))
	b := []rune(Normalize(s2))

	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	best := 0
	for i := 0; i+len(a) <= len(b); i++ {
		score := similarity(a, b[i:i+len(a)])
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// similarity converts edit distance between equal-length rune slices into a
// 0-100 score.
func similarity(a, b []rune) int {
	n := len(a)
	if n == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	if dist >= n {
		return 0
	}
	return int(math.Round(float64(n-dist) / float64(n) * 100))
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// bestPartialMatch returns the candidate with the highest PartialRatio
// against text, with its score. Earlier candidates win ties so iteration
// order stays observable and deterministic.
func bestPartialMatch(text string, candidates []string) (string, int) {
	best, bestScore := "", -1
	for _, c := range candidates {
		if utf8.RuneCountInString(c) == 0 {
			continue
		}
		if score := PartialRatio(text, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}
