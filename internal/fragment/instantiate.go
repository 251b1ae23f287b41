// Package fragment instantiates archetype fragments: structural deep copy
// of the reference tree plus targeted identifier, cross-reference and
// text substitutions. Everything not named by a placeholder or by the
// archetype's characteristic map stays byte-identical to the catalog.
package fragment

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/record"
)

// Bundle is the set of identifiers allocated for one input record. All
// cross-references stamped into the record's fragments come from the
// same bundle; ids are never borrowed across records.
type Bundle struct {
	ProductID   string
	PackID      string
	InstanceID  string
	EquipmentID string
	DeviceID    string
	ComponentID string
	FunctionID  string
	TerminalIDs [2]string
}

func (b Bundle) tokens() map[string]string {
	return map[string]string{
		"PRODUCT_ID":    b.ProductID,
		"PACK_ID":       b.PackID,
		"INSTANCE_ID":   b.InstanceID,
		"EQUIPMENT_ID":  b.EquipmentID,
		"DEVICE_ID":     b.DeviceID,
		"COMPONENT_ID":  b.ComponentID,
		"FUNCTION_ID":   b.FunctionID,
		"COMPONENT_IDS": b.ComponentID,
		"DEVICE_IDS":    b.DeviceID,
		"FUNCTION_IDS":  b.FunctionID,
		"PACK_IDS":      b.PackID,
		"TERMINAL_IDS":  strings.Join([]string{b.TerminalIDs[0], b.TerminalIDs[1]}, " "),
	}
}

// Instantiated carries the fully-substituted fragments for one record.
type Instantiated struct {
	Product   *etree.Element
	Pack      *etree.Element
	Equipment *etree.Element
	Device    *etree.Element
	Component *etree.Element
	Function  *etree.Element
	Terminals []*etree.Element

	// Defaulted is set when the record supplied none of the archetype's
	// characteristic fields, so the product carries only catalog defaults.
	Defaulted bool
}

// Instantiate stamps one record into the archetype's fragment set using
// the freshly allocated bundle. The archetype's trees are never mutated.
func Instantiate(c *catalog.Catalog, a *catalog.Archetype, rec record.Record, b Bundle) *Instantiated {
	tokens := b.tokens()
	for token, binding := range a.Texts {
		v := Resolve(rec, binding.Field)
		if v == "" {
			v = binding.Default
		}
		tokens[token] = v
	}

	out := &Instantiated{
		Product:   instantiate(a.Fragment(catalog.SectionProduct), tokens),
		Pack:      instantiate(a.Fragment(catalog.SectionPack), tokens),
		Equipment: instantiate(a.Fragment(catalog.SectionEquipment), tokens),
		Device:    instantiate(a.Fragment(catalog.SectionDevice), tokens),
		Component: instantiate(a.Fragment(catalog.SectionComponent), tokens),
		Function:  instantiate(a.Fragment(catalog.SectionFunction), tokens),
	}

	for i, id := range b.TerminalIDs {
		term := instantiate(c.Shared(catalog.SharedTerminal), map[string]string{
			"TERMINAL_ID": id,
			"POLARITY":    polarity(i),
		})
		out.Terminals = append(out.Terminals, term)
	}

	out.Defaulted = applyCharacteristics(out.Product, a, rec)
	return out
}

func polarity(i int) string {
	if i == 0 {
		return "1"
	}
	return "2"
}

// applyCharacteristics rewrites the Value/Id text of every characteristic
// the record supplies a value for, in the order the archetype declares.
// It reports whether the record supplied none of them.
func applyCharacteristics(product *etree.Element, a *catalog.Archetype, rec record.Record) bool {
	expected, resolved := 0, 0

	for _, char := range a.Characteristics {
		if char.Field == "" {
			continue
		}
		expected++

		v := Resolve(rec, char.Field)
		if v == "" {
			continue
		}

		slot := findCharacteristicValue(product, char.ID)
		if slot == nil {
			// Load-time validation guarantees the slot; unreachable.
			continue
		}
		slot.SetText(v)
		resolved++
	}

	return expected > 0 && resolved == 0
}

func findCharacteristicValue(product *etree.Element, id string) *etree.Element {
	for _, char := range product.FindElements(".//Characteristic") {
		idEl := char.SelectElement("Id")
		if idEl == nil || idEl.Text() != id {
			continue
		}
		return char.FindElement("SetValues/Value/Id")
	}
	return nil
}

// InstantiateShared substitutes an explicit token map into a shared
// fragment (description, contacts, power connection).
func InstantiateShared(frag *etree.Element, tokens map[string]string) *etree.Element {
	return instantiate(frag, tokens)
}

var placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// instantiate deep-copies the fragment and substitutes placeholder
// tokens in attribute values and text nodes. Substituted values are set
// as raw text; escaping happens exactly once, at serialization.
func instantiate(frag *etree.Element, tokens map[string]string) *etree.Element {
	cp := frag.Copy()
	substitute(cp, tokens)
	return cp
}

func substitute(el *etree.Element, tokens map[string]string) {
	for i, attr := range el.Attr {
		if v, changed := expand(attr.Value, tokens); changed {
			el.Attr[i].Value = v
		}
	}
	if text := el.Text(); text != "" {
		if v, changed := expand(text, tokens); changed {
			el.SetText(v)
		}
	}
	for _, child := range el.ChildElements() {
		substitute(child, tokens)
	}
}

func expand(s string, tokens map[string]string) (string, bool) {
	if !strings.Contains(s, "{") {
		return s, false
	}
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		token := strings.Trim(m, "{}")
		if v, ok := tokens[token]; ok {
			return v
		}
		return m
	})
	return out, out != s
}
