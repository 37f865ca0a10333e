package ui

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is the largest edit distance still offered as a suggestion.
const DefaultMaxDistance = 3

// DefaultMaxSuggestions caps the suggestion list.
const DefaultMaxSuggestions = 3

// SuggestNames returns up to DefaultMaxSuggestions candidates within
// DefaultMaxDistance edits of target, closest first. Comparison ignores case;
// ties keep candidate order. Exact matches are not suggestions.
//
//	SuggestNames("Amdin", []string{"Admin", "Public"}) // ["Admin"]
func SuggestNames(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	want := strings.ToLower(target)
	var matches []match
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] || c == target {
			continue
		}
		seen[c] = true
		if d := LevenshteinDistance(want, strings.ToLower(c)); d <= DefaultMaxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var out []string
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance is the number of single-rune insertions, deletions or
// substitutions needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(t)]
}
