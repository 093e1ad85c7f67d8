package provider

import "strings"

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// StripThinkTags removes every <think>...</think> segment from s.
//
// A segment runs from an opening tag to the first closing tag after it.
// Text outside removed segments is kept byte for byte. An opening tag with no
// closing tag after it, or a closing tag with no opening tag before it, cannot
// be delimited and is left as is.
//
// Removal is repeated until nothing changes, so the result never contains a
// complete segment and StripThinkTags(StripThinkTags(s)) == StripThinkTags(s).
func StripThinkTags(s string) string {
	for {
		next := stripThinkSegments(s)
		if next == s {
			return s
		}
		s = next
	}
}

// stripThinkSegments does a single left-to-right removal pass.
func stripThinkSegments(s string) string {
	if !strings.Contains(s, thinkOpenTag) {
		return s
	}

	var b strings.Builder
	rest := s
	removed := false
	for {
		start := strings.Index(rest, thinkOpenTag)
		if start == -1 {
			break
		}
		end := strings.Index(rest[start+len(thinkOpenTag):], thinkCloseTag)
		if end == -1 {
			// unterminated
			break
		}
		end += start + len(thinkOpenTag)

		b.WriteString(rest[:start])
		rest = rest[end+len(thinkCloseTag):]
		removed = true
	}

	if !removed {
		return s
	}
	b.WriteString(rest)
	return b.String()
}
