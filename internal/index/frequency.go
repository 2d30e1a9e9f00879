package index

import "iter"

// Frequencies counts how many times each term occurs in terms.
func Frequencies(terms iter.Seq[string]) map[string]int {
	counts := make(map[string]int)
	for t := range terms {
		counts[t]++
	}
	return counts
}
