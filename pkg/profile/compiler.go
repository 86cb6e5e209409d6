// Package profile decomposes one profile document into entities and draft
// relations.
//
// A profile is a mapping whose keys are either metadata (description and
// relations) or sections. Sections are walked recursively: sequences
// become one entity carrying their scalar items, mappings become one
// entity per level that has own observations or child sections. Entities
// below the second nesting level are attributed to the profile rather
// than to the source document.
package profile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/document"
	"github.com/ajitpratap0/memgraph/pkg/entity"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/models"
)

// Metadata keys at the top of a profile.
const (
	KeyDescription = "description"
	KeyRelations   = "relations"
)

// attributionDepth is the nesting depth from which entities cite the
// profile instead of the source document.
const attributionDepth = 2

// Result is the output of compiling one profile.
type Result struct {
	Entities  []models.Entity
	Relations []models.Relation
}

// Options configures a Compiler.
type Options struct {
	// AllowedRelations is the relation vocabulary. Empty means "inherits".
	AllowedRelations []string
	Substituter      *Substituter
	Factory          *entity.Factory
	Logger           *zap.Logger
}

// Compiler compiles profiles. It holds no per-profile state and is safe
// for concurrent use.
type Compiler struct {
	allowed     []string
	substituter *Substituter
	factory     *entity.Factory
	logger      *zap.Logger
}

// walkContext is the accumulated position of a section in its profile.
type walkContext struct {
	ProfileName string
	SourceFile  string
	Parent      string
	Depth       int
}

func (wc walkContext) child(parent string) walkContext {
	return walkContext{
		ProfileName: wc.ProfileName,
		SourceFile:  wc.SourceFile,
		Parent:      parent,
		Depth:       wc.Depth + 1,
	}
}

// source returns the attribution for an entity at this position.
func (wc walkContext) source() string {
	if wc.Depth >= attributionDepth {
		return wc.ProfileName
	}
	return wc.SourceFile
}

// NewCompiler creates a Compiler.
func NewCompiler(opts Options) *Compiler {
	allowed := opts.AllowedRelations
	if len(allowed) == 0 {
		allowed = []string{"inherits"}
	}
	factory := opts.Factory
	if factory == nil {
		factory = entity.NewFactory()
	}
	substituter := opts.Substituter
	if substituter == nil {
		substituter = NewSubstituter(nil)
	}
	return &Compiler{
		allowed:     allowed,
		substituter: substituter,
		factory:     factory,
		logger:      logger.OrNop(opts.Logger),
	}
}

// ExtractProfile returns the mapping holding the profile: the value under
// profileName when it is a mapping, otherwise the document itself.
func ExtractProfile(profileName string, doc document.Value) document.Value {
	if v, ok := doc.Get(profileName); ok && v.IsMapping() {
		return v
	}
	return doc
}

// Compile decomposes one parsed document into entities and draft
// relations. Relations are checked first so a disallowed type fails the
// profile before any entity is built.
func (c *Compiler) Compile(profileName, sourceFile string, doc document.Value) (*Result, error) {
	if profileName == "" {
		return nil, builderrors.New(builderrors.ErrorTypeValidation, "profile name is required").
			WithDetail("file", sourceFile)
	}

	data := ExtractProfile(profileName, doc)
	result := &Result{}
	if !data.IsMapping() {
		c.logger.Debug("profile has no mapping content", zap.String("profile", profileName))
		return result, nil
	}

	relations, err := c.extractRelations(profileName, data)
	if err != nil {
		return nil, err
	}
	result.Relations = relations

	if desc, ok := data.Get(KeyDescription); ok {
		e, present, err := c.descriptionEntity(profileName, sourceFile, desc)
		if err != nil {
			return nil, err
		}
		if present {
			result.Entities = append(result.Entities, e)
		}
	}

	root := walkContext{ProfileName: profileName, SourceFile: sourceFile, Parent: profileName}
	for _, f := range data.Fields {
		if f.Key == KeyDescription || f.Key == KeyRelations {
			continue
		}
		entities, err := c.walkSection(f.Key, f.Value, root)
		if err != nil {
			return nil, err
		}
		result.Entities = append(result.Entities, entities...)
	}

	c.logger.Debug("compiled profile",
		zap.String("profile", profileName),
		zap.Int("entities", len(result.Entities)),
		zap.Int("relations", len(result.Relations)))
	return result, nil
}

func (c *Compiler) descriptionEntity(profileName, sourceFile string, desc document.Value) (models.Entity, bool, error) {
	if desc.IsNull() {
		return models.Entity{}, false, nil
	}
	if !desc.IsScalar() {
		return models.Entity{}, false, builderrors.Newf(builderrors.ErrorTypeValidation,
			"description of profile '%s' must be a string, got %s", profileName, desc.Kind).
			WithDetail("profile", profileName)
	}
	text := c.substituter.Apply(desc.Scalar)
	if strings.TrimSpace(text) == "" {
		return models.Entity{}, false, nil
	}
	e, err := c.factory.CreateDescriptionEntity(profileName, text, sourceFile)
	if err != nil {
		return models.Entity{}, false, err
	}
	return e, true, nil
}

func (c *Compiler) extractRelations(profileName string, data document.Value) ([]models.Relation, error) {
	rels, ok := data.Get(KeyRelations)
	if !ok || rels.IsNull() {
		return nil, nil
	}
	if !rels.IsSequence() {
		return nil, builderrors.Newf(builderrors.ErrorTypeValidation,
			"relations of profile '%s' must be a sequence, got %s", profileName, rels.Kind).
			WithDetail("profile", profileName)
	}

	var out []models.Relation
	for _, item := range rels.Items {
		if !item.IsMapping() {
			continue
		}
		target, _ := item.Get("target")
		relType, _ := item.Get("type")
		to, rt := scalarText(target), scalarText(relType)
		if to == "" || rt == "" {
			continue
		}
		if !c.isAllowed(rt) {
			return nil, builderrors.Newf(builderrors.ErrorTypeValidation,
				"Invalid relation type '%s' in profile '%s'. Valid types: %s",
				rt, profileName, strings.Join(c.allowed, ", ")).
				WithDetail("profile", profileName).
				WithDetail("type", rt)
		}
		out = append(out, models.Relation{From: profileName, To: to, RelationType: rt})
	}
	return out, nil
}

func (c *Compiler) isAllowed(relationType string) bool {
	for _, a := range c.allowed {
		if a == relationType {
			return true
		}
	}
	return false
}

func (c *Compiler) walkSection(name string, v document.Value, wc walkContext) ([]models.Entity, error) {
	switch v.Kind {
	case document.KindSequence:
		// Collection items add no observations; the section still gets
		// its entity.
		if !hasItems(v) {
			return nil, nil
		}
		e, err := c.sectionEntity(name, c.sequenceObservations(v), "", wc)
		if err != nil {
			return nil, err
		}
		return []models.Entity{e}, nil

	case document.KindMapping:
		return c.walkMapping(name, v, wc)

	default:
		return nil, nil
	}
}

func (c *Compiler) walkMapping(name string, v document.Value, wc walkContext) ([]models.Entity, error) {
	shape := Classify(v)

	var (
		own      []string
		children []document.Field
		override string
	)
	for _, f := range v.Fields {
		switch {
		case isChildSection(f):
			children = append(children, f)
		case f.Key == keyObservations && f.Value.IsSequence():
			own = append(own, c.sequenceObservations(f.Value)...)
		case f.Key == keyType && shape == ShapeExplicitTypedLeaf:
			override = scalarText(f.Value)
		case f.Value.IsScalar():
			if text := scalarText(f.Value); text != "" {
				own = append(own, f.Key+": "+c.substituter.Apply(text))
			}
		}
	}

	if len(own) == 0 && len(children) == 0 {
		return nil, nil
	}

	e, err := c.sectionEntity(name, own, override, wc)
	if err != nil {
		return nil, err
	}
	out := []models.Entity{e}

	next := wc.child(name)
	for _, f := range children {
		entities, err := c.walkSection(f.Key, f.Value, next)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

func (c *Compiler) sectionEntity(name string, obs []string, override string, wc walkContext) (models.Entity, error) {
	e, err := c.factory.CreateEntity(name, obs, entity.Context{
		ProfileName:  wc.ProfileName,
		SourceFile:   wc.source(),
		EntityType:   override,
		ParentEntity: wc.Parent,
	})
	if err != nil {
		return models.Entity{}, builderrors.Wrap(err, builderrors.ErrorTypeValidation,
			fmt.Sprintf("invalid section '%s' in profile '%s'", name, wc.ProfileName))
	}
	return e, nil
}

// sequenceObservations converts scalar items to substituted strings.
// Nulls, empty strings and nested collections are dropped.
func (c *Compiler) sequenceObservations(seq document.Value) []string {
	out := make([]string, 0, len(seq.Items))
	for _, item := range seq.Items {
		if text := scalarText(item); text != "" {
			out = append(out, c.substituter.Apply(text))
		}
	}
	return out
}
