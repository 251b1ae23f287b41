// Package classify decides which archetype an input record belongs to.
package classify

import (
	"strings"

	"github.com/samber/lo"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/record"
)

// Classify concatenates the record's descriptive fields, lowercases the
// result and tests each archetype's keyword set in the catalog's fixed
// priority order. First match wins; keyword overlap between categories
// always resolves to the higher-priority archetype. A nil return is not
// an error: the caller skips the record and counts it.
func Classify(c *catalog.Catalog, rec record.Record) *catalog.Archetype {
	text := strings.ToLower(rec.DescriptiveText())

	for _, a := range c.All() {
		matched := lo.SomeBy(a.Keywords, func(kw string) bool {
			return strings.Contains(text, strings.ToLower(kw))
		})
		if matched {
			return a
		}
	}
	return nil
}
