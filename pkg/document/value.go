// Package document parses profile documents into a generic tree of
// scalars, sequences and mappings.
package document

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindScalar is a leaf value such as a string, number or null.
	KindScalar Kind = iota + 1
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is an ordered list of key/value fields.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// YAML core schema tags a scalar may carry.
const (
	TagNull  = "!!null"
	TagStr   = "!!str"
	TagInt   = "!!int"
	TagFloat = "!!float"
	TagBool  = "!!bool"
)

// Value is one node of a parsed document. Only the fields matching Kind
// are meaningful.
type Value struct {
	Kind Kind

	// Scalar holds the source text of a scalar and Tag its resolved tag.
	Scalar string
	Tag    string

	Items  []Value
	Fields []Field
}

// Field is one key/value pair of a mapping, kept in document order.
type Field struct {
	Key   string
	Value Value
}

// String returns a scalar string value.
func String(s string) Value {
	return Value{Kind: KindScalar, Scalar: s, Tag: TagStr}
}

// Null returns a null scalar.
func Null() Value {
	return Value{Kind: KindScalar, Tag: TagNull}
}

// Sequence returns a sequence of items.
func Sequence(items ...Value) Value {
	return Value{Kind: KindSequence, Items: items}
}

// Mapping returns a mapping of fields.
func Mapping(fields ...Field) Value {
	return Value{Kind: KindMapping, Fields: fields}
}

// F is shorthand for a Field.
func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// IsScalar reports whether v is a scalar.
func (v Value) IsScalar() bool { return v.Kind == KindScalar }

// IsSequence reports whether v is a sequence.
func (v Value) IsSequence() bool { return v.Kind == KindSequence }

// IsMapping reports whether v is a mapping.
func (v Value) IsMapping() bool { return v.Kind == KindMapping }

// IsNull reports whether v is a null scalar.
func (v Value) IsNull() bool {
	return v.Kind == KindScalar && v.Tag == TagNull
}

// IsCollection reports whether v is a sequence or a mapping.
func (v Value) IsCollection() bool {
	return v.Kind == KindSequence || v.Kind == KindMapping
}

// Get returns the value stored under key in a mapping. The first matching
// field wins.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMapping {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of items or fields, or zero for scalars.
func (v Value) Len() int {
	switch v.Kind {
	case KindSequence:
		return len(v.Items)
	case KindMapping:
		return len(v.Fields)
	default:
		return 0
	}
}
