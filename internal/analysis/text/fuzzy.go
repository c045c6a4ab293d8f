package text

import "strings"

// MaxFuzzyDistance is the largest edit distance still treated as a match.
const MaxFuzzyDistance = 2

// minFuzzyQueryLen: queries this short or shorter only match by substring.
const minFuzzyQueryLen = 3

// Distance returns the Levenshtein distance between a and b, counting
// insertions, deletions and substitutions as one edit each.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// matrix[i][j] is the distance between rb[:i] and ra[:j].
	matrix := make([][]int, len(rb)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(ra)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(ra); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(rb); i++ {
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
				continue
			}
			matrix[i][j] = 1 + min(
				matrix[i-1][j-1], // substitution
				matrix[i][j-1],   // insertion
				matrix[i-1][j],   // deletion
			)
		}
	}
	return matrix[len(rb)][len(ra)]
}

// Matches reports whether query approximately matches candidate. Both are
// normalized first. Substring containment wins outright; otherwise, for
// queries longer than three characters, any word of candidate within
// MaxFuzzyDistance edits counts.
func Matches(query, candidate string) bool {
	q := Normalize(query)
	if q == "" {
		return false
	}
	c := Normalize(candidate)
	if strings.Contains(c, q) {
		return true
	}
	if len([]rune(q)) <= minFuzzyQueryLen {
		return false
	}
	for _, word := range Words(c) {
		if Distance(q, word) <= MaxFuzzyDistance {
			return true
		}
	}
	return false
}
