package profile

import (
	"os"
	"regexp"
	"strings"
)

// A key is any text up to the closing brace.
var placeholderPattern = regexp.MustCompile(`\{path\.([^{}]+)\}`)

// Substituter replaces {path.KEY} tokens with values from a path table.
type Substituter struct {
	table map[string]string
}

// NewSubstituter builds a Substituter, expanding a leading ~ in table
// values to the current user's home directory.
func NewSubstituter(table map[string]string) *Substituter {
	home, _ := os.UserHomeDir()
	return NewSubstituterWithHome(table, home)
}

// NewSubstituterWithHome is NewSubstituter with an explicit home directory.
// An empty home leaves ~ untouched.
func NewSubstituterWithHome(table map[string]string, home string) *Substituter {
	expanded := make(map[string]string, len(table))
	for k, v := range table {
		expanded[k] = expandHome(v, home)
	}
	return &Substituter{table: expanded}
}

func expandHome(v, home string) string {
	if home == "" || !strings.HasPrefix(v, "~") {
		return v
	}
	if v == "~" || strings.HasPrefix(v, "~/") {
		return strings.TrimSuffix(home, "/") + v[1:]
	}
	return v
}

// Apply substitutes every known token in text in a single pass. Unknown
// tokens are left as written.
func (s *Substituter) Apply(text string) string {
	if s == nil || len(s.table) == 0 || !strings.Contains(text, "{path.") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := token[len("{path.") : len(token)-1]
		if v, ok := s.table[key]; ok {
			return v
		}
		return token
	})
}

// Lookup returns the expanded table value for key.
func (s *Substituter) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.table[key]
	return v, ok
}
