package fragment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"caneco-bridge/internal/record"
)

var (
	ratingRe   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*A\b`)
	nsxSizeRe  = regexp.MustCompile(`(?i)NSX(\d+)`)
	breakingRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*kA\b`)
	refRe      = regexp.MustCompile(`(?i)\b(NSX\w+|iDT\w+|iC60\w*)`)
)

// Resolve returns a record field by name, deriving the value from the
// record's free text when the field is one of the computed ones and the
// source columns do not carry it directly.
func Resolve(rec record.Record, field string) string {
	if field == "" {
		return ""
	}
	if v := rec.Get(field); v != "" {
		return v
	}

	switch field {
	case "rating":
		return deriveRating(rec)
	case "rating_plain":
		return strings.TrimSuffix(deriveRating(rec), ".00")
	case "breaking_capacity":
		return deriveBreakingCapacity(rec)
	case record.FieldProductRef:
		return deriveProductRef(rec)
	case "range":
		return deriveRange(rec)
	}
	return ""
}

func searchText(rec record.Record) string {
	return rec.Get(record.FieldDescription) + " " +
		rec.Get(record.FieldReference) + " " +
		rec.Get(record.FieldSpecifications)
}

// deriveRating extracts the nominal current as the format's fixed
// two-decimal form ("32A" -> "32.00"). The frame size of an NSX
// reference serves as fallback when no explicit amp figure appears.
func deriveRating(rec record.Record) string {
	text := searchText(rec)

	m := ratingRe.FindStringSubmatch(text)
	if m == nil {
		m = nsxSizeRe.FindStringSubmatch(text)
	}
	if m == nil {
		return ""
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.2f", n)
}

func deriveBreakingCapacity(rec record.Record) string {
	m := breakingRe.FindStringSubmatch(searchText(rec))
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", ".")
}

// deriveProductRef picks the manufacturer reference out of the record's
// text when the schedule has no dedicated column for it.
func deriveProductRef(rec record.Record) string {
	for _, field := range []string{record.FieldReference, record.FieldDescription, record.FieldSpecifications} {
		if m := refRe.FindString(rec.Get(field)); m != "" {
			return m
		}
	}
	return ""
}

func deriveRange(rec record.Record) string {
	ref := Resolve(rec, record.FieldProductRef)
	upper := strings.ToUpper(ref)
	switch {
	case strings.Contains(upper, "NSX"):
		return "NSX"
	case strings.Contains(upper, "IDT"), strings.Contains(upper, "IC60"):
		return "Acti9 iC60"
	}
	return ""
}
