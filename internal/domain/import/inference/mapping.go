// Package inference maps arbitrary source headers onto the canonical sales
// fields, either from a persisted mapping or by fuzzy synonym matching.
package inference

import (
	"strings"
)

// CanonicalField is one of the semantic sales attributes the importer understands.
type CanonicalField string

const (
	FieldDate     CanonicalField = "Date"
	FieldProduct  CanonicalField = "Product"
	FieldCustomer CanonicalField = "Customer"
	FieldQuantity CanonicalField = "Quantity"
	FieldAmount   CanonicalField = "Amount"
)

// Fields lists every canonical field in evaluation order. SuggestMap depends on
// this order when headers are ambiguous.
var Fields = []CanonicalField{FieldDate, FieldProduct, FieldCustomer, FieldQuantity, FieldAmount}

// RequiredFields must be mapped before any row is parsed. Quantity defaults to 1.
var RequiredFields = []CanonicalField{FieldDate, FieldProduct, FieldCustomer, FieldAmount}

// ParseField returns the canonical field matching name, ignoring case.
func ParseField(name string) (CanonicalField, bool) {
	for _, f := range Fields {
		if strings.EqualFold(string(f), strings.TrimSpace(name)) {
			return f, true
		}
	}
	return "", false
}

// Completeness classifies a mapping against RequiredFields.
type Completeness int

const (
	NoMapping Completeness = iota
	PartialMapping
	CompleteMapping
)

func (c Completeness) String() string {
	switch c {
	case PartialMapping:
		return "partial"
	case CompleteMapping:
		return "complete"
	default:
		return "none"
	}
}

// HeaderMapping associates canonical fields with the source header holding them.
// A missing key and a blank value both mean "unmapped".
type HeaderMapping map[CanonicalField]string

// Header returns the mapped source header for f, or "" when unmapped.
func (m HeaderMapping) Header(f CanonicalField) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[f])
}

// Has reports whether f is mapped to a non-blank header.
func (m HeaderMapping) Has(f CanonicalField) bool {
	return m.Header(f) != ""
}

// Missing returns the required fields without a header, in canonical order.
func (m HeaderMapping) Missing() []CanonicalField {
	var missing []CanonicalField
	for _, f := range RequiredFields {
		if !m.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field is mapped.
func (m HeaderMapping) Complete() bool {
	return len(m.Missing()) == 0
}

// Completeness classifies the mapping.
func (m HeaderMapping) Completeness() Completeness {
	mapped := 0
	for _, f := range Fields {
		if m.Has(f) {
			mapped++
		}
	}
	switch {
	case mapped == 0:
		return NoMapping
	case m.Complete():
		return CompleteMapping
	default:
		return PartialMapping
	}
}

// Clone returns a copy that can be modified without affecting m.
func (m HeaderMapping) Clone() HeaderMapping {
	out := make(HeaderMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FormatFields joins field names with ", " for error messages.
func FormatFields(fields []CanonicalField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
