// Package assemble builds the final exchange-format document from
// instantiated fragments, enforces referential integrity and serializes
// with the element order and empty-element forms the consuming
// application validates.
package assemble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"caneco-bridge/internal/catalog"
)

const (
	xmlnsMain = "http://www.schneider-electric.com/electrical-distribution/exchange-format"
	xmlnsXSI  = "http://www.w3.org/2001/XMLSchema-instance"
	xmlnsXSD  = "http://www.w3.org/2001/XMLSchema"
)

var (
	// ErrDanglingReference marks a cross-reference to an id that no
	// element in the document declares.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrDuplicateID marks two elements declaring the same id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrSerialize wraps serialization failures.
	ErrSerialize = errors.New("serialize failed")
)

// Sections holds the per-section element lists in input order. Nil
// Description or Contacts and empty lists are allowed; the section
// wrappers are always emitted.
type Sections struct {
	Description *etree.Element
	Contacts    *etree.Element
	Products    []*etree.Element
	Packs       []*etree.Element
	Equipments  []*etree.Element
	Devices     []*etree.Element
	Components  []*etree.Element
	Functions   []*etree.Element
	Terminals   []*etree.Element
	Connections []*etree.Element
}

// Build assembles the document tree in the fixed section order and
// verifies that every cross-reference resolves. Input elements are
// adopted into the document, not copied.
func Build(v catalog.Versions, s Sections) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement("ElectricalProject")
	root.CreateAttr("xmlns:xsi", xmlnsXSI)
	root.CreateAttr("xmlns:xsd", xmlnsXSD)
	root.CreateAttr("formatVersion", v.Format)
	root.CreateAttr("productRangeValuesVersion", v.ProductRangeValues)
	root.CreateAttr("commercialTaxonomyVersion", v.CommercialTaxonomy)
	root.CreateAttr("electricalTaxonomyVersion", v.ElectricalTaxonomy)
	root.CreateAttr("mechanicalTaxonomyVersion", v.MechanicalTaxonomy)
	root.CreateAttr("xmlns", xmlnsMain)

	if s.Description != nil {
		root.AddChild(s.Description)
	}
	if s.Contacts != nil {
		root.AddChild(s.Contacts)
	}

	products := root.CreateElement("Products")
	appendAll(products.CreateElement("ProductSet"), s.Products)
	appendAll(products.CreateElement("ProductList"), s.Packs)

	appendAll(root.CreateElement("Equipments"), s.Equipments)

	network := root.CreateElement("Network")
	appendAll(network.CreateElement("Devices"), s.Devices)
	appendAll(network.CreateElement("Components"), s.Components)
	appendAll(network.CreateElement("Functions"), s.Functions)
	appendAll(network.CreateElement("Terminals"), s.Terminals)
	appendAll(network.CreateElement("PowerConnections"), s.Connections)

	if err := checkReferences(root); err != nil {
		return nil, err
	}
	return doc, nil
}

func appendAll(parent *etree.Element, children []*etree.Element) {
	for _, child := range children {
		parent.AddChild(child)
	}
}

// Attributes whose value is a whitespace-separated id reference list.
var refAttrs = map[string]bool{
	"ProductInstance": true,
	"Components":      true,
	"Devices":         true,
	"Functions":       true,
	"ProductPacks":    true,
	"Terminals":       true,
	"Descriptor":      true,
}

func checkReferences(root *etree.Element) error {
	declared := make(map[string]bool)

	var collect func(el *etree.Element) error
	collect = func(el *etree.Element) error {
		if id := el.SelectAttrValue("id", ""); id != "" && !isContactRef(el) {
			if declared[id] {
				return fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			declared[id] = true
		}
		for _, child := range el.ChildElements() {
			if err := collect(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(root); err != nil {
		return err
	}

	var check func(el *etree.Element) error
	check = func(el *etree.Element) error {
		for _, attr := range el.Attr {
			if !refAttrs[attr.Key] {
				continue
			}
			for _, id := range strings.Fields(attr.Value) {
				if !declared[id] {
					return fmt.Errorf("%w: <%s %s=%q> names undeclared id %s",
						ErrDanglingReference, el.Tag, attr.Key, attr.Value, id)
				}
			}
		}
		if isContactRef(el) {
			if id := el.SelectAttrValue("id", ""); id != "" && !declared[id] {
				return fmt.Errorf("%w: person names undeclared company %s", ErrDanglingReference, id)
			}
		}
		for _, child := range el.ChildElements() {
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	return check(root)
}

// isContactRef reports whether el is the Company element nested in a
// Person, whose id attribute is a reference, not a declaration.
func isContactRef(el *etree.Element) bool {
	parent := el.Parent()
	return el.Tag == "Company" && parent != nil && parent.Tag == "Person"
}

// Elements the consuming application requires in explicit empty form
// even when they have no content. Everything else stays self-closing.
var explicitEmpty = []string{
	"Phone", "Name", "LastName", "Email", "Street", "PostalCode", "City",
	"Country", "Manufacturer", "Range", "Designation", "RangeDisplayName",
	"DesignationDisplayName", "VoltageRange", "Rating", "StandardTypeOf",
	"SwitchedPoleCount", "ProtectedPoleCount", "BreakingCapacity",
	"EarthingSystem", "Frequency", "Polarity", "SystemEarthingManagement",
	"Voltage", "Protection", "Ild", "Tld", "Isd", "Tsd", "Iid", "Ti",
	"FunctionalName", "Properties", "Id", "Number",
}

var explicitEmptyRe = regexp.MustCompile(
	`<(` + strings.Join(explicitEmpty, "|") + `)((?: [^<>]*)?)/>`)

// Serialize renders the document with two-space indentation and applies
// the empty-element forms of the reference output.
func Serialize(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return explicitEmptyRe.ReplaceAll(raw, []byte("<$1$2></$1>")), nil
}

// WriteFile writes the document atomically: temp file in the target
// directory, then rename. A failed conversion never leaves a truncated
// output behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".caneco-*.xml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
