package normalize

import "strings"

// SplitName splits a combined "Last, First" name on the first comma.
// Text before the comma is the last name, trimmed text after it the first
// name. A value with no comma is all last name.
func SplitName(s string) (first, last string) {
	before, after, found := strings.Cut(s, ",")
	last = strings.TrimSpace(before)
	if found {
		first = strings.TrimSpace(after)
	}
	return first, last
}
