// Package analyzer classifies profiles and their sections from their parsed
// structure. Parsed documents are kept in a bounded cache keyed by file path
// so repeated lookups do not re-read files.
package analyzer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/cache"
	"github.com/ajitpratap0/memgraph/pkg/config"
	"github.com/ajitpratap0/memgraph/pkg/document"
	"github.com/ajitpratap0/memgraph/pkg/entity"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/profile"
)

// Profile type values found under a profile's type key.
const (
	TypeCommon   = "common"
	TypeStandard = "standard"
	TypeUnknown  = "unknown"
)

var safeKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var extensions = []string{".yaml", ".yml"}

// Config points the analyzer at the profile directories.
type Config struct {
	Dir       string
	CommonDir string
	Pattern   string
}

// TypeAnalyzer answers structural questions about profiles.
type TypeAnalyzer struct {
	cfg    Config
	cache  cache.Cache[document.Value]
	loader *document.Loader
	logger *zap.Logger
}

// New creates a TypeAnalyzer. A nil cache gets a default LRU and a nil
// loader a default size-bounded loader.
func New(cfg Config, c cache.Cache[document.Value], loader *document.Loader, log *zap.Logger) *TypeAnalyzer {
	if c == nil {
		c = cache.NewLRU[document.Value](cache.DefaultCapacity)
	}
	if loader == nil {
		loader = document.NewLoader(document.DefaultMaxSize)
	}
	if cfg.CommonDir == "" && cfg.Dir != "" {
		cfg.CommonDir = filepath.Join(cfg.Dir, "common")
	}
	return &TypeAnalyzer{cfg: cfg, cache: c, loader: loader, logger: logger.OrNop(log)}
}

// Prime stores an already parsed document for the file at path.
func (a *TypeAnalyzer) Prime(path string, doc document.Value) {
	if path == "" {
		return
	}
	a.cache.Put(filepath.Clean(path), doc)
}

// Structure returns the parsed document for a profile key, looking in the
// domain directory first and the common directory second.
func (a *TypeAnalyzer) Structure(key string) (document.Value, error) {
	if !safeKey.MatchString(key) {
		return document.Value{}, builderrors.New(builderrors.ErrorTypeValidation, "unsafe profile key "+key).
			WithDetail("key", key)
	}
	path, ok := a.locate(key)
	if !ok {
		return document.Value{}, builderrors.New(builderrors.ErrorTypeDocument, "profile "+key+" not found").
			WithDetail("key", key)
	}
	if v, ok := a.cache.Get(path); ok {
		return v, nil
	}
	v, err := a.loader.Load(path)
	if err != nil {
		return document.Value{}, err
	}
	a.cache.Put(path, v)
	return v, nil
}

func (a *TypeAnalyzer) locate(key string) (string, bool) {
	for _, dir := range []string{a.cfg.Dir, a.cfg.CommonDir} {
		if dir == "" {
			continue
		}
		for _, ext := range extensions {
			candidate := filepath.Clean(filepath.Join(dir, key+ext))
			if !within(dir, candidate) {
				continue
			}
			if a.loader.Exists(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// within reports whether path stays inside dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (a *TypeAnalyzer) profileData(key string) (document.Value, bool) {
	doc, err := a.Structure(key)
	if err != nil {
		a.logger.Debug("profile structure unavailable", zap.String("key", key), zap.Error(err))
		return document.Value{}, false
	}
	return profile.ExtractProfile(strings.ToUpper(key), doc), true
}

// ProfileType returns the value of the profile's top-level type key, or ""
// when the profile cannot be read or declares none.
func (a *TypeAnalyzer) ProfileType(key string) string {
	data, ok := a.profileData(key)
	if !ok {
		return ""
	}
	return declaredType(data)
}

// Classify maps a profile onto common, standard or unknown.
func (a *TypeAnalyzer) Classify(key string) string {
	return classifyType(a.ProfileType(key))
}

// ClassifyDocument classifies a parsed document holding the named profile.
// Unlike Classify it never touches the file system or the cache.
func ClassifyDocument(profileName string, doc document.Value) string {
	return classifyType(declaredType(profile.ExtractProfile(profileName, doc)))
}

func declaredType(data document.Value) string {
	t, ok := data.Get("type")
	if !ok || !t.IsScalar() || t.IsNull() {
		return ""
	}
	return strings.TrimSpace(t.Scalar)
}

// classifyType keeps declared types verbatim and maps a missing one to
// unknown.
func classifyType(t string) string {
	if t == "" {
		return TypeUnknown
	}
	return t
}

// IsSectionHeader reports whether name is a top-level section of the profile.
func (a *TypeAnalyzer) IsSectionHeader(key, name string) bool {
	if name == profile.KeyDescription || name == profile.KeyRelations {
		return false
	}
	data, ok := a.profileData(key)
	if !ok {
		return false
	}
	v, ok := data.Get(name)
	return ok && v.IsCollection()
}

// DetermineEntityType predicts the entity type the compiler assigns to a
// top-level name of the profile.
func (a *TypeAnalyzer) DetermineEntityType(key, name string) string {
	profileName := strings.ToUpper(key)
	if name == profileName {
		return entity.DescriptionType(profileName)
	}
	if data, ok := a.profileData(key); ok {
		if v, ok := data.Get(name); ok && v.IsMapping() && profile.Classify(v) == profile.ShapeExplicitTypedLeaf {
			if t, ok := v.Get("type"); ok {
				return strings.TrimSpace(t.Scalar)
			}
		}
	}
	return entity.TypeSection
}

// Discover lists the profile keys found in the domain and common
// directories, deduplicated and sorted.
func (a *TypeAnalyzer) Discover() ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, dir := range []string{a.cfg.Dir, a.cfg.CommonDir} {
		names, err := config.ListDocuments(dir, a.cfg.Pattern)
		if err != nil {
			return nil, builderrors.Wrap(err, builderrors.ErrorTypeConfig, "failed to scan "+dir).
				WithDetail("code", config.CodeScan)
		}
		for _, n := range names {
			key := strings.TrimSuffix(n, filepath.Ext(n))
			if !safeKey.MatchString(key) {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearCache drops every cached structure.
func (a *TypeAnalyzer) ClearCache() {
	a.cache.Clear()
}

// CacheLen returns the number of cached structures.
func (a *TypeAnalyzer) CacheLen() int {
	return a.cache.Len()
}
