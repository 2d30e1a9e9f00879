// Package spelling suggests indexed terms close to a misspelled word.
package spelling

// LevenshteinDistance returns the minimum number of single-rune insertions, deletions
// or substitutions needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rows of the edit matrix are enough.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Closest returns the entry of vocabulary with the smallest distance to word.
// Ties go to the entry listed first. ok is false when vocabulary is empty.
func Closest(word string, vocabulary []string) (term string, distance int, ok bool) {
	for _, v := range vocabulary {
		d := LevenshteinDistance(word, v)
		if !ok || d < distance {
			term, distance, ok = v, d, true
			if d == 0 {
				break
			}
		}
	}
	return term, distance, ok
}
