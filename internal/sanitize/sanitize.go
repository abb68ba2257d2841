// Package sanitize strips markup from user supplied display text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding Text unwraps.
const maxPasses = 4

// Text strips HTML from s and trims surrounding space. Entities are decoded
// so plain characters such as '&' read naturally, and the result is stripped
// again until decoding no longer reveals markup. Input that is still
// changing after maxPasses is returned in its escaped form.
func Text(s string) string {
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
