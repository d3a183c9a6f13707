// Package redact scrubs sensitive text using tenant-configured patterns.
package redact

import (
	"regexp"
	"strings"
)

// Marker replaces every match. Policy convention requires that no supplied
// pattern matches the marker itself, which makes Apply idempotent.
const Marker = "[REDACTED]"

// Apply replaces matches of each pattern, in list order, with Marker.
// Patterns are matched case-insensitively. A pattern that does not compile
// as a regular expression is treated as a literal substring. An empty
// pattern list returns the input unchanged.
func Apply(text string, patterns []string) string {
	if len(patterns) == 0 {
		return text
	}

	out := text
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			out = strings.ReplaceAll(out, p, Marker)
			continue
		}
		out = re.ReplaceAllString(out, Marker)
	}
	return out
}
