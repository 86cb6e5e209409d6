package profile

import (
	"strings"

	"github.com/ajitpratap0/memgraph/pkg/document"
)

// Reserved keys inside sections.
const (
	keyObservations = "observations"
	keyType         = "type"
)

// Shape is the structural classification of a mapping section.
type Shape int

const (
	// ShapeLeafObservations has no child sections; every property is an
	// observation.
	ShapeLeafObservations Shape = iota + 1
	// ShapeExplicitTypedLeaf has no child sections, a scalar type and an
	// observations sequence. The type becomes the entity type.
	ShapeExplicitTypedLeaf
	// ShapeCompositeWithChildren has at least one nested mapping or
	// non-empty sequence besides observations.
	ShapeCompositeWithChildren
)

func (s Shape) String() string {
	switch s {
	case ShapeLeafObservations:
		return "leaf"
	case ShapeExplicitTypedLeaf:
		return "typed-leaf"
	case ShapeCompositeWithChildren:
		return "composite"
	default:
		return "unknown"
	}
}

// Classify chooses the shape of a mapping section.
func Classify(v document.Value) Shape {
	var hasType, hasObservations bool
	for _, f := range v.Fields {
		if isChildSection(f) {
			return ShapeCompositeWithChildren
		}
		switch f.Key {
		case keyType:
			hasType = f.Value.IsScalar() && !f.Value.IsNull() && f.Value.Scalar != ""
		case keyObservations:
			hasObservations = f.Value.IsSequence()
		}
	}
	if hasType && hasObservations {
		return ShapeExplicitTypedLeaf
	}
	return ShapeLeafObservations
}

// isChildSection reports whether a mapping field decomposes into its own
// entity. An observations sequence belongs to its parent, and a sequence
// holding only null or empty items contributes nothing.
func isChildSection(f document.Field) bool {
	switch f.Value.Kind {
	case document.KindMapping:
		return true
	case document.KindSequence:
		return f.Key != keyObservations && hasItems(f.Value)
	default:
		return false
	}
}

// hasItems reports whether seq holds a non-blank scalar or a non-empty
// collection.
func hasItems(seq document.Value) bool {
	for _, item := range seq.Items {
		if scalarText(item) != "" || (item.IsCollection() && item.Len() > 0) {
			return true
		}
	}
	return false
}

// scalarText returns the trimmed text of a non-null scalar, or "" for
// anything else.
func scalarText(v document.Value) string {
	if !v.IsScalar() || v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.Scalar)
}
