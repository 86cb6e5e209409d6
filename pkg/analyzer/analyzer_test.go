package analyzer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/cache"
	"github.com/ajitpratap0/memgraph/pkg/document"
	"github.com/ajitpratap0/memgraph/pkg/testutil"
)

func setup(t *testing.T) (*TypeAnalyzer, *cache.LRU[document.Value], string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "WIDGET.yaml", "WIDGET:\n  type: standard\n  description: does widgets\n  config:\n    timeout: 30\n  reviewer:\n    type: persona\n    observations: [checks]\n")
	testutil.WriteFile(t, dir, "TOOLS.yml", "TOOLS:\n  type: custom\n")
	testutil.WriteFile(t, dir, "common/BASE.yaml", "BASE:\n  type: common\n  skills: [a]\n")
	testutil.WriteFile(t, dir, "common/WIDGET.yaml", "WIDGET:\n  type: common\n")
	testutil.WriteFile(t, dir, "NOTYPE.yaml", "NOTYPE:\n  skills: [a]\n")
	testutil.WriteFile(t, dir, "bad name.yaml", "x: y\n")

	lru := cache.NewLRU[document.Value](2)
	a := New(Config{Dir: dir}, lru, nil, testutil.TestLogger(t))
	return a, lru, dir
}

func TestProfileType(t *testing.T) {
	a, _, _ := setup(t)

	assert.Equal(t, "standard", a.ProfileType("WIDGET"), "domain directory wins over common")
	assert.Equal(t, "common", a.ProfileType("BASE"))
	assert.Equal(t, "custom", a.ProfileType("TOOLS"))
	assert.Equal(t, "", a.ProfileType("NOTYPE"))
	assert.Equal(t, "", a.ProfileType("MISSING"))

	assert.Equal(t, TypeStandard, a.Classify("WIDGET"))
	assert.Equal(t, TypeCommon, a.Classify("BASE"))
	assert.Equal(t, TypeUnknown, a.Classify("NOTYPE"))
}

func TestStructureRejectsUnsafeKeys(t *testing.T) {
	a, _, _ := setup(t)

	for _, key := range []string{"../etc/passwd", "a/b", "", "bad name", "x.yaml"} {
		_, err := a.Structure(key)
		require.Error(t, err, key)
		assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeValidation), key)
	}
}

func TestStructureUsesCache(t *testing.T) {
	a, lru, dir := setup(t)

	_, err := a.Structure("WIDGET")
	require.NoError(t, err)
	_, err = a.Structure("BASE")
	require.NoError(t, err)
	assert.Equal(t, 2, lru.Len())

	// a cached structure survives its file changing
	testutil.WriteFile(t, dir, "WIDGET.yaml", "WIDGET:\n  type: changed\n")
	assert.Equal(t, "standard", a.ProfileType("WIDGET"))

	// loading a third profile evicts the least recently used one (BASE)
	_, err = a.Structure("TOOLS")
	require.NoError(t, err)
	_, cached := lru.Get(filepath.Join(dir, "common", "BASE.yaml"))
	assert.False(t, cached)

	a.ClearCache()
	assert.Equal(t, 0, a.CacheLen())
	assert.Equal(t, "changed", a.ProfileType("WIDGET"))
}

func TestPrime(t *testing.T) {
	a, _, dir := setup(t)
	typed := func(name, typ string) document.Value {
		return document.Mapping(document.F(name, document.Mapping(document.F("type", document.String(typ)))))
	}

	a.Prime(filepath.Join(dir, "TOOLS.yml"), typed("TOOLS", "primed"))
	assert.Equal(t, "primed", a.ProfileType("TOOLS"))

	// Same-named profiles in the two directories are cached separately.
	a.Prime(filepath.Join(dir, "common", "WIDGET.yaml"), typed("WIDGET", "common"))
	assert.Equal(t, "standard", a.ProfileType("WIDGET"))

	a.Prime("", document.Mapping())
	assert.Equal(t, 2, a.CacheLen())
}

func TestClassifyDocument(t *testing.T) {
	doc := func(yaml string) document.Value {
		v, err := document.NewLoader(0).Parse([]byte(yaml))
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, TypeCommon, ClassifyDocument("BASE", doc("BASE:\n  type: common\n")))
	assert.Equal(t, "custom", ClassifyDocument("TOOLS", doc("TOOLS:\n  type: ' custom '\n")))
	assert.Equal(t, TypeUnknown, ClassifyDocument("NOTYPE", doc("NOTYPE:\n  skills: [a]\n")))
	assert.Equal(t, TypeStandard, ClassifyDocument("FLAT", doc("type: standard\n")))
}

func TestSectionQueries(t *testing.T) {
	a, _, _ := setup(t)

	assert.True(t, a.IsSectionHeader("WIDGET", "config"))
	assert.False(t, a.IsSectionHeader("WIDGET", "description"))
	assert.False(t, a.IsSectionHeader("WIDGET", "type"))
	assert.False(t, a.IsSectionHeader("WIDGET", "missing"))
	assert.False(t, a.IsSectionHeader("MISSING", "config"))

	assert.Equal(t, "widget_description", a.DetermineEntityType("WIDGET", "WIDGET"))
	assert.Equal(t, "section", a.DetermineEntityType("WIDGET", "config"))
	assert.Equal(t, "persona", a.DetermineEntityType("WIDGET", "reviewer"))
	assert.Equal(t, "section", a.DetermineEntityType("MISSING", "config"))
}

func TestDiscover(t *testing.T) {
	a, _, _ := setup(t)

	keys, err := a.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"BASE", "NOTYPE", "TOOLS", "WIDGET"}, keys)
}

func TestWithin(t *testing.T) {
	dir := filepath.Join("/srv", "profiles")
	assert.True(t, within(dir, filepath.Join(dir, "A.yaml")))
	assert.False(t, within(dir, filepath.Join(dir, "..", "A.yaml")))
	assert.True(t, within(dir, filepath.Join(dir, "..profiles.yaml")))
}
