package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
)

// DefaultMaxSize bounds document reads when no explicit limit is configured.
const DefaultMaxSize int64 = 1 << 20

// maxAliasDepth stops alias chains that refer back to themselves.
const maxAliasDepth = 64

// Aliases are expanded by copying their anchor, so a small document can
// describe an enormous tree. The number of values produced from one
// document is capped at aliasExpansionRatio times its node count, and never
// below minNodeBudget.
const (
	aliasExpansionRatio = 4
	minNodeBudget       = 100000
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// Loader reads and parses profile documents.
type Loader struct {
	// MaxSize rejects documents larger than this many bytes. Zero or
	// negative disables the check.
	MaxSize int64
}

// NewLoader creates a Loader with the given size bound.
func NewLoader(maxSize int64) *Loader {
	return &Loader{MaxSize: maxSize}
}

// Load reads the document at path and parses it.
func (l *Loader) Load(path string) (Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Value{}, builderrors.Wrap(err, builderrors.ErrorTypeDocument, "failed to read "+path).
			WithDetail("file", path)
	}
	if info.IsDir() {
		return Value{}, builderrors.New(builderrors.ErrorTypeDocument, path+" is a directory").
			WithDetail("file", path)
	}
	if l.MaxSize > 0 && info.Size() > l.MaxSize {
		return Value{}, builderrors.Newf(builderrors.ErrorTypeDocument,
			"%s is %d bytes, exceeds maximum of %d", path, info.Size(), l.MaxSize).
			WithDetail("file", path).
			WithDetail("size", info.Size())
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the build configuration
	if err != nil {
		return Value{}, builderrors.Wrap(err, builderrors.ErrorTypeDocument, "failed to read "+path).
			WithDetail("file", path)
	}

	v, err := l.Parse(data)
	if err != nil {
		var be *builderrors.Error
		if errors.As(err, &be) {
			be.Message = "failed to parse " + path
			be.WithDetail("file", path)
		}
		return Value{}, err
	}
	return v, nil
}

// Parse converts raw YAML into a Value. Empty input yields an empty mapping.
func (l *Loader) Parse(data []byte) (Value, error) {
	if l.MaxSize > 0 && int64(len(data)) > l.MaxSize {
		return Value{}, builderrors.Newf(builderrors.ErrorTypeDocument,
			"document is %d bytes, exceeds maximum of %d", len(data), l.MaxSize).
			WithDetail("size", len(data))
	}

	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Mapping(), nil
		}
		return Value{}, parseError(err)
	}

	c := &converter{remaining: nodeBudget(&root)}
	v, err := c.convert(&root, 0)
	if err != nil {
		return Value{}, err
	}
	if v.IsNull() {
		return Mapping(), nil
	}
	return v, nil
}

func parseError(err error) *builderrors.Error {
	e := builderrors.Wrap(err, builderrors.ErrorTypeDocument, "failed to parse document")
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			e.WithDetail("line", line)
		}
	}
	return e
}

// nodeBudget returns how many values may be produced from root.
func nodeBudget(root *yaml.Node) int {
	budget := countNodes(root) * aliasExpansionRatio
	if budget < minNodeBudget {
		budget = minNodeBudget
	}
	return budget
}

// countNodes counts the nodes written in the document. Alias targets are
// not followed.
func countNodes(n *yaml.Node) int {
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

// converter turns a yaml.Node tree into a Value, spending one unit of its
// budget per produced value.
type converter struct {
	remaining int
}

func (c *converter) spend(n *yaml.Node) error {
	c.remaining--
	if c.remaining < 0 {
		return builderrors.New(builderrors.ErrorTypeDocument, "document expands too many aliases").
			WithDetail("line", n.Line)
	}
	return nil
}

func (c *converter) convert(n *yaml.Node, depth int) (Value, error) {
	if n.Kind != yaml.DocumentNode {
		if err := c.spend(n); err != nil {
			return Value{}, err
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Mapping(), nil
		}
		return c.convert(n.Content[0], depth)

	case yaml.AliasNode:
		if depth >= maxAliasDepth || n.Alias == nil {
			return Value{}, builderrors.New(builderrors.ErrorTypeDocument, "alias nesting too deep").
				WithDetail("line", n.Line)
		}
		return c.convert(n.Alias, depth+1)

	case yaml.ScalarNode:
		return Value{Kind: KindScalar, Scalar: n.Value, Tag: n.ShortTag()}, nil

	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := c.convert(item, depth)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: KindSequence, Items: items}, nil

	case yaml.MappingNode:
		fields := make([]Field, 0, len(n.Content)/2)
		var merged []Field
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
				mv, err := c.convert(vn, depth)
				if err != nil {
					return Value{}, err
				}
				merged = append(merged, mergeFields(mv)...)
				continue
			}
			if k.Kind != yaml.ScalarNode {
				return Value{}, builderrors.Newf(builderrors.ErrorTypeDocument,
					"unsupported %s mapping key", kindName(k.Kind)).
					WithDetail("line", k.Line)
			}
			v, err := c.convert(vn, depth)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: k.Value, Value: v})
		}
		return Value{Kind: KindMapping, Fields: applyMerge(fields, merged)}, nil

	default:
		return Value{}, builderrors.New(builderrors.ErrorTypeDocument, fmt.Sprintf("unsupported node kind %d", n.Kind)).
			WithDetail("line", n.Line)
	}
}

// mergeFields flattens the value of a "<<" key, which is a mapping or a
// sequence of mappings.
func mergeFields(v Value) []Field {
	switch v.Kind {
	case KindMapping:
		return v.Fields
	case KindSequence:
		var out []Field
		for _, item := range v.Items {
			if item.IsMapping() {
				out = append(out, item.Fields...)
			}
		}
		return out
	default:
		return nil
	}
}

// applyMerge appends merged fields whose keys are not set explicitly.
// Among merged fields the first occurrence wins.
func applyMerge(fields, merged []Field) []Field {
	if len(merged) == 0 {
		return fields
	}
	seen := make(map[string]struct{}, len(fields)+len(merged))
	for _, f := range fields {
		seen[f.Key] = struct{}{}
	}
	for _, f := range merged {
		if _, ok := seen[f.Key]; ok {
			continue
		}
		seen[f.Key] = struct{}{}
		fields = append(fields, f)
	}
	return fields
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "non-scalar"
	}
}

// Exists reports whether path names a regular file.
func (l *Loader) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
