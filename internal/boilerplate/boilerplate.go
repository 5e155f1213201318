// Package boilerplate detects and removes running headers, footers and
// copyright lines from paginated text.
package boilerplate

import (
	"strings"
	"unicode/utf8"
)

const (
	// edgeLines is how many lines from the top and bottom of a page are sampled.
	edgeLines = 3
	// minSampledLines is the line count a page must exceed before it is sampled.
	minSampledLines = 2
	// minCandidateRunes is the shortest trimmed line considered as boilerplate.
	minCandidateRunes = 4
	// minKeptRunes drops lines shorter than this after stripping.
	minKeptRunes = 3
)

// Set is a collection of trimmed boilerplate lines.
type Set map[string]struct{}

// Has reports whether the trimmed line is in the set.
func (s Set) Has(line string) bool {
	_, ok := s[strings.TrimSpace(line)]
	return ok
}

// Find returns the trimmed lines longer than three characters that occur in
// at least max(2, len(groups)/2) groups. Fewer than two groups yield an empty set.
func Find(groups [][]string) Set {
	found := make(Set)
	if len(groups) < 2 {
		return found
	}

	counts := make(map[string]int)
	for _, group := range groups {
		seen := make(map[string]bool, len(group))
		for _, line := range group {
			line = strings.TrimSpace(line)
			if utf8.RuneCountInString(line) < minCandidateRunes || seen[line] {
				continue
			}
			seen[line] = true
			counts[line]++
		}
	}

	threshold := max(2, len(groups)/2)
	for line, n := range counts {
		if n >= threshold {
			found[line] = struct{}{}
		}
	}
	return found
}

// Sets is the header and footer boilerplate detected for one document.
type Sets struct {
	Headers Set
	Footers Set
}

// Detect samples the first and last lines of every page with more than two
// lines and returns the recurring headers and footers.
func Detect(pages []string) Sets {
	var tops, bottoms [][]string
	for _, page := range pages {
		lines := strings.Split(page, "\n")
		if len(lines) <= minSampledLines {
			continue
		}
		tops = append(tops, lines[:min(edgeLines, len(lines))])
		bottoms = append(bottoms, lines[max(0, len(lines)-edgeLines):])
	}
	return Sets{Headers: Find(tops), Footers: Find(bottoms)}
}

// Strip removes leading header lines, trailing footer lines, copyright and
// page-label lines, and lines shorter than three characters.
func Strip(text string, sets Sets) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	for len(lines) > 0 && sets.Headers.Has(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && sets.Footers.Has(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}

	kept := lines[:0]
	for _, line := range lines {
		if isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	clean := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(clean, "©"),
		strings.Contains(clean, "copyright"),
		strings.Contains(clean, "all rights reserved"),
		strings.HasPrefix(clean, "page "),
		strings.HasSuffix(clean, " page"):
		return true
	}
	return utf8.RuneCountInString(clean) < minKeptRunes
}
