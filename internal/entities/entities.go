// Package entities decodes the HTML-escaped fragments that show up in chat
// output before they are handed to the diagram renderer or displayed.
package entities

import (
	"regexp"
	"strconv"
	"strings"
)

// named is the small set of entities the chat server and the markdown
// renderer are known to produce. Anything else is left untouched.
var named = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&nbsp;": " ",
}

var entityPattern = regexp.MustCompile(`(?i)&[a-z0-9#]+;`)

// Decode normalizes escaped arrows, ampersands and quotes. Diagram arrows
// ("--&gt;") are fixed first because they are the most common breakage.
// Unknown named entities pass through unchanged.
func Decode(text string) string {
	if text == "" {
		return text
	}

	text = strings.ReplaceAll(text, "--&gt;", "-->")

	return entityPattern.ReplaceAllStringFunc(text, func(entity string) string {
		if v, ok := named[entity]; ok {
			return v
		}
		if strings.HasPrefix(entity, "&#") {
			if r, ok := decodeNumeric(entity); ok {
				return string(r)
			}
		}
		return entity
	})
}

// decodeNumeric handles &#NN; and &#xHH; forms.
func decodeNumeric(entity string) (rune, bool) {
	body := strings.TrimSuffix(strings.TrimPrefix(entity, "&#"), ";")
	base := 10
	if strings.HasPrefix(body, "x") || strings.HasPrefix(body, "X") {
		body = body[1:]
		base = 16
	}
	if body == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(body, base, 32)
	if err != nil || n <= 0 || n > 0x10FFFF {
		return 0, false
	}
	return rune(n), true
}
