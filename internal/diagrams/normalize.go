package diagrams

import (
	"strings"

	"github.com/ziadkadry99/wisdomizer/internal/entities"
)

// Normalize prepares placeholder text for the renderer: entities left over
// from HTML escaping are decoded, stray code fences are dropped, and
// surrounding blank lines and a leading BOM are trimmed.
func Normalize(source string) string {
	source = strings.TrimPrefix(source, "\ufeff")
	source = entities.Decode(source)
	source = strings.ReplaceAll(source, "\r\n", "\n")

	var out []string
	for _, line := range strings.Split(source, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
