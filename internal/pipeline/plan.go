package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/config"
)

// Document is one unit of work: a file to load and compile as a profile.
type Document struct {
	// Path is the absolute location of the file.
	Path string
	// Source is the attribution recorded on shallow entities, e.g.
	// "WIDGET.yaml" or "common/BASE.yaml".
	Source string
	// Key is the file stem, used for structure lookups.
	Key string
	// ProfileName is the upper-cased stem.
	ProfileName string
	// Common marks documents from the shared directory.
	Common bool
}

func newDocument(dir, name, source string, common bool) Document {
	key := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return Document{
		Path:        filepath.Join(dir, name),
		Source:      source,
		Key:         key,
		ProfileName: strings.ToUpper(key),
		Common:      common,
	}
}

// Plan lists the documents of a build in processing order: the common
// set, the explicit profile list, then any other documents found in the
// domain directory. A file appears at most once.
func Plan(cfg *config.BuildConfig) ([]Document, error) {
	b := cfg.Build
	var docs []Document
	seen := make(map[string]struct{})
	add := func(d Document) {
		if _, ok := seen[d.Path]; ok {
			return
		}
		seen[d.Path] = struct{}{}
		docs = append(docs, d)
	}

	if b.Process.CommonProfilesFirst {
		names, err := config.ListDocuments(b.ProfilesPath.Common, b.ProfilesPattern)
		if err != nil {
			return nil, scanError(b.ProfilesPath.Common, err)
		}
		base := filepath.Base(b.ProfilesPath.Common)
		for _, n := range names {
			add(newDocument(b.ProfilesPath.Common, n, base+"/"+n, true))
		}
	}

	explicit := make(map[string]struct{}, len(b.Profiles))
	for _, p := range b.Profiles {
		explicit[filepath.Base(p)] = struct{}{}
		add(newDocument(b.ProfilesPath.Domain, p, p, false))
	}

	if b.Process.AdditionalProfiles {
		names, err := config.ListDocuments(b.ProfilesPath.Domain, b.ProfilesPattern)
		if err != nil {
			return nil, scanError(b.ProfilesPath.Domain, err)
		}
		for _, n := range names {
			if _, ok := explicit[n]; ok {
				continue
			}
			add(newDocument(b.ProfilesPath.Domain, n, n, false))
		}
	}
	return docs, nil
}

func scanError(dir string, err error) error {
	return builderrors.Wrap(err, builderrors.ErrorTypeConfig, "failed to scan profile directory "+dir).
		WithDetail("code", config.CodeScan).
		WithDetail("dir", dir)
}
