package formatting

import "strings"

// ExtractReason returns the emergency category prefix of a call title: the text
// before the first colon, verbatim. A title without a colon is its own reason.
func ExtractReason(title string) string {
	if i := strings.IndexByte(title, ':'); i >= 0 {
		return title[:i]
	}
	return title
}

// HasReasonPrefix reports whether the title carries a colon-delimited category.
func HasReasonPrefix(title string) bool {
	return strings.IndexByte(title, ':') >= 0
}
