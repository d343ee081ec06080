package generate

import (
	"sort"
	"strings"
)

// Render substitutes {name} placeholders in tmpl with vars. Unknown
// placeholders are left as written and substituted values are not expanded
// again.
func Render(tmpl string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
