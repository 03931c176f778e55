package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// ExtractJSONArray returns the first balanced JSON array substring of s.
// Models often wrap their JSON in explanatory prose; this pulls the payload
// out before parsing. Returns "" when no balanced array is present.
func ExtractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// ExtractJSONObject returns the first balanced JSON object substring of s.
func ExtractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

func extractBalanced(s string, open, close rune) string {
	start := strings.IndexRune(s, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range s[start:] {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : start+i+1]
			}
		}
	}
	return ""
}

// ParseLeadingInt parses the first integer appearing in s. Grading models are
// told to answer with a bare number but tend to decorate it ("Score: 78/100").
// Non-numeric input yields 0.
func ParseLeadingInt(s string) int {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}

	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}

// ClampScore bounds a grade to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
