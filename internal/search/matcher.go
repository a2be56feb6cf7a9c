package search

import "strings"

// MatchResult holds matching lines in the order they appear in the content.
// Each entry is a substring of the searched content, not a copy.
type MatchResult []string

// Mode selects between the case-sensitive and case-insensitive matchers.
type Mode int

const (
	// CaseSensitive matches the query exactly as given.
	CaseSensitive Mode = iota
	// CaseInsensitive lowercases query and line before matching.
	CaseInsensitive
)

// ModeFor returns the Mode matching the given case sensitivity.
func ModeFor(caseSensitive bool) Mode {
	if caseSensitive {
		return CaseSensitive
	}
	return CaseInsensitive
}

// String returns the mode's name for logs.
func (m Mode) String() string {
	switch m {
	case CaseSensitive:
		return "case-sensitive"
	case CaseInsensitive:
		return "case-insensitive"
	default:
		return "unknown"
	}
}

// Run searches content with the matcher selected by mode.
// Unknown modes fall back to case-sensitive.
func Run(mode Mode, query, content string) MatchResult {
	switch mode {
	case CaseInsensitive:
		return SearchCaseInsensitive(query, content)
	default:
		return Search(query, content)
	}
}

// Search returns every line of content containing query, in original order.
// An empty query matches every line.
func Search(query, content string) MatchResult {
	var result MatchResult
	for _, line := range Lines(content) {
		if strings.Contains(line, query) {
			result = append(result, line)
		}
	}
	return result
}

// SearchCaseInsensitive is like Search but lowercases the query and each line
// before testing containment. The returned lines keep their original case.
func SearchCaseInsensitive(query, content string) MatchResult {
	query = strings.ToLower(query)

	var result MatchResult
	for _, line := range Lines(content) {
		if strings.Contains(strings.ToLower(line), query) {
			result = append(result, line)
		}
	}
	return result
}

// Lines splits content into lines. Lines end at "\n" with an optional
// preceding "\r" stripped; a trailing terminator does not yield an extra
// empty line.
func Lines(content string) []string {
	var lines []string
	for line := range strings.Lines(content) {
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		lines = append(lines, line)
	}
	return lines
}
