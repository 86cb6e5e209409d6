// Package entity builds canonical entity records. It owns entity type
// inference and observation normalization.
package entity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/models"
)

const (
	// TypeSection is the entity type of any section without an override.
	TypeSection = "section"
	// DescriptionSuffix is appended to the lowercased profile name to form
	// the type of a profile's description entity.
	DescriptionSuffix = "_description"
	// PlaceholderObservation keeps content-empty sections non-empty.
	PlaceholderObservation = "capabilities"
	// MaxObservationLength bounds an observation, counted in characters.
	MaxObservationLength = 1000
)

// Context carries the attribution and typing inputs for one entity.
type Context struct {
	ProfileName  string
	SourceFile   string
	EntityType   string
	ParentEntity string
}

// Factory creates entities. The zero value is ready to use.
type Factory struct {
	// MaxObservationLength overrides the default bound when positive.
	MaxObservationLength int
}

// NewFactory returns a Factory with the default observation bound.
func NewFactory() *Factory {
	return &Factory{MaxObservationLength: MaxObservationLength}
}

// DescriptionType returns the entity type of a profile's description entity.
func DescriptionType(profileName string) string {
	return strings.ToLower(profileName) + DescriptionSuffix
}

// CreateEntity builds an entity from a name, raw observations and context.
func (f *Factory) CreateEntity(name string, observations []string, ctx Context) (models.Entity, error) {
	if name == "" {
		return models.Entity{}, builderrors.New(builderrors.ErrorTypeValidation, "entity name is required").
			WithDetail("profile", ctx.ProfileName)
	}
	if ctx.ProfileName == "" {
		return models.Entity{}, builderrors.New(builderrors.ErrorTypeValidation, "profile name is required for entity "+name).
			WithDetail("entity", name)
	}
	if ctx.SourceFile == "" {
		return models.Entity{}, builderrors.New(builderrors.ErrorTypeValidation, "source file is required for entity "+name).
			WithDetail("entity", name).
			WithDetail("profile", ctx.ProfileName)
	}

	entityType := inferType(name, ctx)
	obs := f.normalize(observations)
	if len(obs) == 0 {
		if entityType != TypeSection {
			return models.Entity{}, builderrors.Newf(builderrors.ErrorTypeValidation,
				"entity %q of type %q has no valid observations", name, entityType).
				WithDetail("entity", name).
				WithDetail("profile", ctx.ProfileName)
		}
		obs = []string{PlaceholderObservation}
	}

	return models.Entity{
		Name:         name,
		EntityType:   entityType,
		Observations: obs,
		Source:       ctx.SourceFile,
	}, nil
}

// CreateDescriptionEntity builds the entity describing a whole profile.
func (f *Factory) CreateDescriptionEntity(profileName, description, sourceFile string) (models.Entity, error) {
	return f.CreateEntity(profileName, []string{description}, Context{
		ProfileName: profileName,
		SourceFile:  sourceFile,
		EntityType:  DescriptionType(profileName),
	})
}

// CreateSectionEntity builds a section entity. An empty parent means the
// section hangs directly off the profile.
func (f *Factory) CreateSectionEntity(sectionName string, observations []string, profileName, sourceFile, parent string) (models.Entity, error) {
	if parent == "" {
		parent = profileName
	}
	return f.CreateEntity(sectionName, observations, Context{
		ProfileName:  profileName,
		SourceFile:   sourceFile,
		ParentEntity: parent,
	})
}

func inferType(name string, ctx Context) string {
	if ctx.EntityType != "" {
		return ctx.EntityType
	}
	if name == ctx.ProfileName && ctx.ParentEntity == "" {
		return DescriptionType(name)
	}
	return TypeSection
}

// normalize trims, drops empties, dedupes by first occurrence, drops
// entries over the length bound and sorts.
func (f *Factory) normalize(observations []string) []string {
	limit := f.MaxObservationLength
	if limit <= 0 {
		limit = MaxObservationLength
	}

	seen := make(map[string]struct{}, len(observations))
	out := make([]string, 0, len(observations))
	for _, o := range observations {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		if utf8.RuneCountInString(o) > limit {
			continue
		}
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
