package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/models"
	"github.com/ajitpratap0/memgraph/pkg/testutil"
)

func entities(names ...string) []models.Entity {
	out := make([]models.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, models.Entity{Name: n, EntityType: "section", Observations: []string{"x"}})
	}
	return out
}

func rel(from, to string) models.Relation {
	return models.Relation{From: from, To: to, RelationType: "inherits"}
}

func TestResolveMissingEndpoints(t *testing.T) {
	r := NewResolver(Config{}, testutil.TestLogger(t))

	res, err := r.Resolve([]models.Relation{
		rel("WIDGET", "BASE"),
		rel("WIDGET", "GHOST"),
		rel("PHANTOM", "BASE"),
		rel("WIDGET", "GHOST"),
	}, entities("WIDGET", "BASE"))
	require.NoError(t, err)

	assert.Equal(t, []models.Relation{rel("WIDGET", "BASE")}, res.Relations)
	assert.Equal(t, []string{"GHOST (to)", "PHANTOM (from)"}, res.MissingReferences)
	assert.Equal(t, 3, res.Dropped)
	assert.Empty(t, res.Cycles)
}

func TestResolveCycleKeepsRelations(t *testing.T) {
	r := NewResolver(Config{}, testutil.TestLogger(t))
	drafts := []models.Relation{rel("A", "B"), rel("B", "C"), rel("C", "A")}

	res, err := r.Resolve(drafts, entities("A", "B", "C"))
	require.NoError(t, err)

	assert.Equal(t, drafts, res.Relations)
	assert.Equal(t, [][]string{{"A", "B", "C", "A"}}, res.Cycles)
}

func TestResolveDisallowedTypes(t *testing.T) {
	drafts := []models.Relation{
		rel("A", "B"),
		{From: "A", To: "B", RelationType: "owns"},
		{From: "B", To: "A", RelationType: "uses"},
		{From: "B", To: "A", RelationType: "owns"},
	}

	t.Run("critical", func(t *testing.T) {
		r := NewResolver(Config{AllowedTypes: []string{"inherits", "extends"}, StopOnCriticalError: true}, testutil.TestLogger(t))
		_, err := r.Resolve(drafts, entities("A", "B"))
		require.Error(t, err)
		assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeValidation))
		assert.ErrorContains(t, err, "Invalid relation types: owns, uses. Allowed: inherits, extends")
	})

	t.Run("tolerant", func(t *testing.T) {
		r := NewResolver(Config{AllowedTypes: []string{"inherits"}}, testutil.TestLogger(t))
		res, err := r.Resolve(drafts, entities("A", "B"))
		require.NoError(t, err)
		assert.Equal(t, []models.Relation{rel("A", "B")}, res.Relations)
		assert.Equal(t, 3, res.Dropped)
	})
}

func TestResolveIncompleteDrafts(t *testing.T) {
	r := NewResolver(Config{StopOnCriticalError: true}, nil)
	res, err := r.Resolve([]models.Relation{{From: "A", To: "B"}, {From: "A", RelationType: "inherits"}}, entities("A", "B"))
	require.NoError(t, err)
	assert.Empty(t, res.Relations)
	assert.Equal(t, 2, res.Dropped)
}

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name      string
		relations []models.Relation
		want      [][]string
	}{
		{name: "empty", relations: nil, want: nil},
		{name: "chain", relations: []models.Relation{rel("A", "B"), rel("B", "C")}, want: nil},
		{name: "self loop", relations: []models.Relation{rel("A", "A")}, want: [][]string{{"A", "A"}}},
		{
			name:      "two node",
			relations: []models.Relation{rel("A", "B"), rel("B", "A")},
			want:      [][]string{{"A", "B", "A"}},
		},
		{
			name:      "cycle entered midway",
			relations: []models.Relation{rel("X", "A"), rel("A", "B"), rel("B", "A")},
			want:      [][]string{{"A", "B", "A"}},
		},
		{
			name:      "diamond has no cycle",
			relations: []models.Relation{rel("A", "B"), rel("A", "C"), rel("B", "D"), rel("C", "D")},
			want:      nil,
		},
		{
			name: "two independent cycles",
			relations: []models.Relation{
				rel("A", "B"), rel("B", "A"),
				rel("C", "D"), rel("D", "C"),
			},
			want: [][]string{{"A", "B", "A"}, {"C", "D", "C"}},
		},
		{
			name:      "shared node",
			relations: []models.Relation{rel("A", "B"), rel("B", "A"), rel("B", "C"), rel("C", "B")},
			want:      [][]string{{"A", "B", "A"}, {"B", "C", "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCycles(tt.relations))
		})
	}
}
