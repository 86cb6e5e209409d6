package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// ListDocuments returns the names of regular files in dir that match the
// glob pattern, sorted by name. Dotfiles are skipped. A missing directory
// yields an empty list.
func ListDocuments(dir, pattern string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if pattern == "" {
		pattern = DefaultProfilesPattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}
		if g.Match(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
