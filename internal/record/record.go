// Package record normalizes heterogeneous CAD equipment schedules into a
// uniform list of field maps consumed by the conversion pipeline.
package record

// Canonical field names. Whatever the source columns were called, the
// normalizer maps them onto these keys.
const (
	FieldDescription    = "description"
	FieldReference      = "reference"
	FieldManufacturer   = "manufacturer"
	FieldProductRef     = "product_ref"
	FieldSpecifications = "specifications"
)

// Record is one physical equipment item, field name to string value.
// Records are built once by Normalize and read-only afterwards.
type Record map[string]string

// Get returns the value of a canonical field, "" when absent.
func (r Record) Get(field string) string {
	return r[field]
}

// DescriptiveText concatenates the fields the classifier matches on.
func (r Record) DescriptiveText() string {
	return r[FieldDescription] + " " + r[FieldReference] + " " +
		r[FieldManufacturer] + " " + r[FieldSpecifications]
}
