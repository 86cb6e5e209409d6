// Package models defines the knowledge graph produced by a build.
package models

// Entity is a named, typed graph node carrying observation strings.
type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`

	// Source is the document identifier or profile name the entity is
	// attributed to. It is not persisted.
	Source string `json:"-"`
}

// Relation is a typed directed edge between two entity names.
type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// Graph is the flat output of one build.
type Graph struct {
	Entities  []Entity
	Relations []Relation
}

// EntityNames returns the set of names carried by entities.
func EntityNames(entities []Entity) map[string]struct{} {
	names := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		names[e.Name] = struct{}{}
	}
	return names
}

// Record type tags written to the output stream.
const (
	RecordTypeEntity   = "entity"
	RecordTypeRelation = "relation"
)

// EntityRecord is the persisted form of an Entity. Field order is the
// on-disk field order.
type EntityRecord struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// RelationRecord is the persisted form of a Relation.
type RelationRecord struct {
	Type         string `json:"type"`
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// Record converts e into its persisted form. Observations are never null.
func (e Entity) Record() EntityRecord {
	obs := e.Observations
	if obs == nil {
		obs = []string{}
	}
	return EntityRecord{
		Type:         RecordTypeEntity,
		Name:         e.Name,
		EntityType:   e.EntityType,
		Observations: obs,
	}
}

// Record converts r into its persisted form.
func (r Relation) Record() RelationRecord {
	return RelationRecord{
		Type:         RecordTypeRelation,
		From:         r.From,
		To:           r.To,
		RelationType: r.RelationType,
	}
}
