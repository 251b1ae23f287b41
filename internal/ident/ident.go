// Package ident allocates the sequential, type-prefixed identifiers used
// throughout a generated exchange-format document (PG00001, ED00042, ...).
package ident

import (
	"errors"
	"fmt"
)

// Category names one identifier counter. Every category has its own
// sequence; sequences never interleave.
type Category string

const (
	Product    Category = "product"
	Pack       Category = "pack"
	Instance   Category = "instance"
	Equipment  Category = "equipment"
	Device     Category = "device"
	Component  Category = "component"
	Function   Category = "function"
	Terminal   Category = "terminal"
	Connection Category = "connection"
	Company    Category = "company"
	Person     Category = "person"
)

var prefixes = map[Category]string{
	Product:    "PG",
	Pack:       "PK",
	Instance:   "PI",
	Equipment:  "EQ",
	Device:     "ED",
	Component:  "EC",
	Function:   "EF",
	Terminal:   "ECT",
	Connection: "ECX",
	Company:    "CC",
	Person:     "CP",
}

// maxSequence is the largest value the fixed 5-digit field can carry.
// The width is part of the vendor format and is never widened.
const maxSequence = 99999

var (
	// ErrCapacityExceeded is returned when a category would pass 99999.
	ErrCapacityExceeded = errors.New("identifier capacity exceeded")
	// ErrUnknownCategory is returned for a category with no prefix.
	ErrUnknownCategory = errors.New("unknown identifier category")
)

// Allocator hands out identifiers for one conversion run. It is not safe
// for concurrent use; every run owns its own instance.
type Allocator struct {
	counters map[Category]int
}

func NewAllocator() *Allocator {
	return &Allocator{counters: make(map[Category]int)}
}

// Next returns the next identifier in the category, formatted as
// {prefix}{n:05d}. The first identifier of every category is n=1.
func (a *Allocator) Next(cat Category) (string, error) {
	prefix, ok := prefixes[cat]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	n := a.counters[cat] + 1
	if n > maxSequence {
		return "", fmt.Errorf("%w: category %q", ErrCapacityExceeded, cat)
	}
	a.counters[cat] = n

	return fmt.Sprintf("%s%05d", prefix, n), nil
}

// Issued reports how many identifiers have been handed out in a category.
func (a *Allocator) Issued(cat Category) int {
	return a.counters[cat]
}
