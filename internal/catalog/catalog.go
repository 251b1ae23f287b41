// Package catalog loads the archetype catalog: one reference XML fragment
// set per equipment category, extracted from a known-good exchange-format
// document, plus a YAML manifest describing matcher keywords and the
// substitutable characteristics of each archetype.
//
// The catalog is a curated, versioned asset. Fragments are never derived
// at runtime; the consuming application validates element order and
// empty-element forms that only a real reference document gets right.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"
)

//go:embed assets
var embedded embed.FS

// Section names one fragment slot of an archetype.
type Section string

const (
	SectionProduct   Section = "product"
	SectionPack      Section = "pack"
	SectionEquipment Section = "equipment"
	SectionDevice    Section = "device"
	SectionComponent Section = "component"
	SectionFunction  Section = "function"
)

var archetypeSections = []Section{
	SectionProduct, SectionPack, SectionEquipment,
	SectionDevice, SectionComponent, SectionFunction,
}

// Shared fragment names (not tied to one archetype).
const (
	SharedDescription = "description"
	SharedContacts    = "contacts"
	SharedTerminal    = "terminal"
	SharedConnection  = "connection"
)

var sharedNames = []string{SharedDescription, SharedContacts, SharedTerminal, SharedConnection}

var (
	// ErrLoad wraps any defect found while loading the catalog.
	ErrLoad = errors.New("catalog load failed")
	// ErrUnknownArchetype is returned by Lookup for an absent key.
	ErrUnknownArchetype = errors.New("unknown archetype")
)

// Characteristic is one technical attribute slot of a product fragment.
// Field, when set, names the normalized record field (or derived field)
// whose value replaces the fragment's default.
type Characteristic struct {
	ID    string `yaml:"id"`
	Field string `yaml:"field"`
}

// TextBinding maps a {TOKEN} placeholder in a fragment to a record field
// and the default used when the record does not supply it.
type TextBinding struct {
	Field   string `yaml:"field"`
	Default string `yaml:"default"`
}

// Archetype is one equipment category: its matching rule, its ordered
// characteristic list and its reference fragments. Read-only after Load.
type Archetype struct {
	Key             string
	Priority        int
	GroupID         string
	Keywords        []string
	Characteristics []Characteristic
	Texts           map[string]TextBinding

	fragments map[Section]*etree.Element
}

// Fragment returns the archetype's reference fragment for a section.
// Callers must deep-copy before mutating; the returned tree is shared.
func (a *Archetype) Fragment(s Section) *etree.Element {
	return a.fragments[s]
}

// Versions are the root-element version attributes of the target format.
type Versions struct {
	Format             string `yaml:"format_version"`
	ProductRangeValues string `yaml:"product_range_values_version"`
	CommercialTaxonomy string `yaml:"commercial_taxonomy_version"`
	ElectricalTaxonomy string `yaml:"electrical_taxonomy_version"`
	MechanicalTaxonomy string `yaml:"mechanical_taxonomy_version"`
}

// Catalog is the loaded archetype set, ordered by classification priority.
type Catalog struct {
	Versions Versions

	archetypes []*Archetype
	byKey      map[string]*Archetype
	shared     map[string]*etree.Element
}

// All returns the archetypes in priority order (most specific first).
func (c *Catalog) All() []*Archetype {
	return c.archetypes
}

// Lookup returns the archetype with the given key.
func (c *Catalog) Lookup(key string) (*Archetype, error) {
	a, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, key)
	}
	return a, nil
}

// Shared returns a shared fragment (description, contacts, terminal,
// connection). Same sharing caveat as Archetype.Fragment.
func (c *Catalog) Shared(name string) *etree.Element {
	return c.shared[name]
}

type manifest struct {
	Versions   `yaml:",inline"`
	Shared     map[string]string   `yaml:"shared"`
	Archetypes []manifestArchetype `yaml:"archetypes"`
}

type manifestArchetype struct {
	Key             string                 `yaml:"key"`
	Priority        int                    `yaml:"priority"`
	GroupID         string                 `yaml:"group_id"`
	Keywords        []string               `yaml:"keywords"`
	Fragments       map[string]string      `yaml:"fragments"`
	Characteristics []Characteristic       `yaml:"characteristics"`
	Texts           map[string]TextBinding `yaml:"texts"`
}

// LoadEmbedded loads the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return Load(sub)
}

// LoadDir loads a catalog from an on-disk directory, overriding the
// embedded one (deployments may carry a newer fragment set).
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load reads manifest.yaml plus every referenced fragment and validates
// the whole set: fragments must be well-formed, every declared
// characteristic id must occur in the archetype's own product fragment,
// and every placeholder must be a known token.
func Load(fsys fs.FS) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, "manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", ErrLoad, err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", ErrLoad, err)
	}
	if m.Format == "" {
		return nil, fmt.Errorf("%w: manifest missing format_version", ErrLoad)
	}

	c := &Catalog{
		Versions: m.Versions,
		byKey:    make(map[string]*Archetype),
		shared:   make(map[string]*etree.Element),
	}

	for _, name := range sharedNames {
		path, ok := m.Shared[name]
		if !ok {
			return nil, fmt.Errorf("%w: manifest missing shared fragment %q", ErrLoad, name)
		}
		frag, err := readFragment(fsys, path)
		if err != nil {
			return nil, err
		}
		if err := checkPlaceholders(frag, path, nil); err != nil {
			return nil, err
		}
		c.shared[name] = frag
	}

	for _, ma := range m.Archetypes {
		if ma.Key == "" {
			return nil, fmt.Errorf("%w: archetype with empty key", ErrLoad)
		}
		if _, dup := c.byKey[ma.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate archetype %q", ErrLoad, ma.Key)
		}

		a := &Archetype{
			Key:             ma.Key,
			Priority:        ma.Priority,
			GroupID:         ma.GroupID,
			Keywords:        ma.Keywords,
			Characteristics: ma.Characteristics,
			Texts:           ma.Texts,
			fragments:       make(map[Section]*etree.Element),
		}

		for _, section := range archetypeSections {
			path, ok := ma.Fragments[string(section)]
			if !ok {
				return nil, fmt.Errorf("%w: archetype %q missing %s fragment", ErrLoad, ma.Key, section)
			}
			frag, err := readFragment(fsys, path)
			if err != nil {
				return nil, err
			}
			if err := checkPlaceholders(frag, path, a.Texts); err != nil {
				return nil, err
			}
			a.fragments[section] = frag
		}

		if err := checkCharacteristics(a); err != nil {
			return nil, err
		}

		c.archetypes = append(c.archetypes, a)
		c.byKey[ma.Key] = a
	}

	if len(c.archetypes) == 0 {
		return nil, fmt.Errorf("%w: manifest declares no archetypes", ErrLoad)
	}

	sort.SliceStable(c.archetypes, func(i, j int) bool {
		return c.archetypes[i].Priority < c.archetypes[j].Priority
	})

	return c, nil
}

func readFragment(fsys fs.FS, path string) (*etree.Element, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read fragment %s: %v", ErrLoad, path, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: fragment %s is not well-formed: %v", ErrLoad, path, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: fragment %s has no root element", ErrLoad, path)
	}
	return root, nil
}

// checkCharacteristics verifies that every characteristic id the manifest
// declares actually occurs as a Characteristic/Id in the archetype's
// product fragment. A manifest pointing at absent slots is a defect that
// must fail the load, not silently produce incomplete products.
func checkCharacteristics(a *Archetype) error {
	product := a.fragments[SectionProduct]

	present := make(map[string]bool)
	for _, char := range product.FindElements(".//Characteristic") {
		if id := char.SelectElement("Id"); id != nil {
			present[id.Text()] = true
		}
	}

	for _, char := range a.Characteristics {
		if !present[char.ID] {
			return fmt.Errorf("%w: archetype %q declares characteristic %s absent from its product fragment",
				ErrLoad, a.Key, char.ID)
		}
	}
	return nil
}

var placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// Tokens every fragment may use: identifiers and cross-reference lists
// filled in by the instantiator, plus run metadata.
var baseTokens = map[string]bool{
	"PRODUCT_ID": true, "PACK_ID": true, "INSTANCE_ID": true,
	"EQUIPMENT_ID": true, "DEVICE_ID": true, "COMPONENT_ID": true,
	"FUNCTION_ID": true, "TERMINAL_ID": true, "CONNECTION_ID": true,
	"COMPANY_ID": true, "PERSON_ID": true,
	"COMPONENT_IDS": true, "DEVICE_IDS": true, "FUNCTION_IDS": true,
	"PACK_IDS": true, "TERMINAL_IDS": true,
	"POLARITY": true, "PROJECT_NAME": true, "START_DATE": true,
	"COMPANY_NAME": true,
}

func checkPlaceholders(frag *etree.Element, path string, texts map[string]TextBinding) error {
	var walk func(el *etree.Element) error
	walk = func(el *etree.Element) error {
		for _, attr := range el.Attr {
			if err := checkTokens(attr.Value, path, texts); err != nil {
				return err
			}
		}
		if err := checkTokens(el.Text(), path, texts); err != nil {
			return err
		}
		for _, child := range el.ChildElements() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(frag)
}

func checkTokens(s, path string, texts map[string]TextBinding) error {
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		token := m[1]
		if baseTokens[token] {
			continue
		}
		if _, ok := texts[token]; ok {
			continue
		}
		return fmt.Errorf("%w: fragment %s uses undeclared placeholder {%s}", ErrLoad, path, token)
	}
	return nil
}
