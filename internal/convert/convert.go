// Package convert runs the full conversion pipeline: classify each
// normalized record, allocate its identifier bundle, instantiate the
// archetype fragments and assemble the exchange-format document.
package convert

import (
	"fmt"
	"log/slog"

	"caneco-bridge/internal/assemble"
	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/classify"
	"caneco-bridge/internal/fragment"
	"caneco-bridge/internal/ident"
	"caneco-bridge/internal/record"
)

// Project metadata defaults used when the caller supplies none.
const (
	DefaultProjectName = "Projet Caneco BT"
	DefaultCompanyName = "Schneider Electric"
	DefaultStartDate   = "2023-10-10T00:00:00.0Z"
)

// Meta is the run metadata stamped into the document header.
type Meta struct {
	ProjectName string
	CompanyName string
	StartDate   string
}

func (m Meta) withDefaults() Meta {
	if m.ProjectName == "" {
		m.ProjectName = DefaultProjectName
	}
	if m.CompanyName == "" {
		m.CompanyName = DefaultCompanyName
	}
	if m.StartDate == "" {
		m.StartDate = DefaultStartDate
	}
	return m
}

// Summary counts what happened to the input records.
type Summary struct {
	Total     int
	Matched   int
	Skipped   int
	Defaulted int
}

// Result is a finished conversion: the serialized document plus the
// per-record accounting.
type Result struct {
	XML     []byte
	Summary Summary
}

// Run converts the records into one exchange-format document. Records
// that match no archetype are skipped and counted, never guessed at.
// The same records in the same order produce byte-identical output.
func Run(c *catalog.Catalog, records []record.Record, meta Meta) (*Result, error) {
	meta = meta.withDefaults()
	alloc := ident.NewAllocator()

	companyID, err := alloc.Next(ident.Company)
	if err != nil {
		return nil, err
	}
	personID, err := alloc.Next(ident.Person)
	if err != nil {
		return nil, err
	}

	sections := assemble.Sections{
		Description: fragment.InstantiateShared(c.Shared(catalog.SharedDescription), map[string]string{
			"PROJECT_NAME": meta.ProjectName,
			"START_DATE":   meta.StartDate,
		}),
		Contacts: fragment.InstantiateShared(c.Shared(catalog.SharedContacts), map[string]string{
			"COMPANY_ID":   companyID,
			"PERSON_ID":    personID,
			"COMPANY_NAME": meta.CompanyName,
		}),
	}

	var summary Summary
	summary.Total = len(records)

	// Downstream terminal of the previously matched record; consecutive
	// matched records are chained by a power connection.
	var upstream string

	for i, rec := range records {
		a := classify.Classify(c, rec)
		if a == nil {
			summary.Skipped++
			slog.Debug("record matched no archetype, skipped",
				"index", i, "description", rec.Get(record.FieldDescription))
			continue
		}

		bundle, err := allocateBundle(alloc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		inst := fragment.Instantiate(c, a, rec, bundle)
		sections.Products = append(sections.Products, inst.Product)
		sections.Packs = append(sections.Packs, inst.Pack)
		sections.Equipments = append(sections.Equipments, inst.Equipment)
		sections.Devices = append(sections.Devices, inst.Device)
		sections.Components = append(sections.Components, inst.Component)
		sections.Functions = append(sections.Functions, inst.Function)
		sections.Terminals = append(sections.Terminals, inst.Terminals...)

		if upstream != "" {
			connID, err := alloc.Next(ident.Connection)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			conn := fragment.InstantiateShared(c.Shared(catalog.SharedConnection), map[string]string{
				"CONNECTION_ID": connID,
				"TERMINAL_IDS":  upstream + " " + bundle.TerminalIDs[0],
			})
			sections.Connections = append(sections.Connections, conn)
		}
		upstream = bundle.TerminalIDs[1]

		summary.Matched++
		if inst.Defaulted {
			summary.Defaulted++
			slog.Debug("record supplied no characteristic values, using archetype defaults",
				"index", i, "archetype", a.Key)
		}
	}

	doc, err := assemble.Build(c.Versions, sections)
	if err != nil {
		return nil, err
	}
	raw, err := assemble.Serialize(doc)
	if err != nil {
		return nil, err
	}

	slog.Info("conversion finished",
		"total", summary.Total,
		"matched", summary.Matched,
		"skipped", summary.Skipped,
		"defaulted", summary.Defaulted)

	return &Result{XML: raw, Summary: summary}, nil
}

func allocateBundle(alloc *ident.Allocator) (fragment.Bundle, error) {
	var b fragment.Bundle
	var err error

	next := func(cat ident.Category) string {
		if err != nil {
			return ""
		}
		var id string
		id, err = alloc.Next(cat)
		return id
	}

	b.ProductID = next(ident.Product)
	b.PackID = next(ident.Pack)
	b.InstanceID = next(ident.Instance)
	b.EquipmentID = next(ident.Equipment)
	b.DeviceID = next(ident.Device)
	b.ComponentID = next(ident.Component)
	b.FunctionID = next(ident.Function)
	b.TerminalIDs[0] = next(ident.Terminal)
	b.TerminalIDs[1] = next(ident.Terminal)

	return b, err
}
