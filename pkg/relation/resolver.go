// Package relation validates draft relations against the compiled entity
// set and reports cycles in the resulting graph.
package relation

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/models"
)

// DefaultAllowed is the vocabulary used when none is configured.
var DefaultAllowed = []string{"inherits"}

// Config configures a Resolver.
type Config struct {
	AllowedTypes []string
	// StopOnCriticalError turns disallowed relation types into an error
	// instead of silently dropping them.
	StopOnCriticalError bool
}

// Result is the outcome of resolving relations.
type Result struct {
	// Relations whose endpoints both exist, in draft order. Relations that
	// take part in cycles are kept.
	Relations []models.Relation
	// MissingReferences are "name (from)" or "name (to)" warnings,
	// deduplicated in first-seen order.
	MissingReferences []string
	// Cycles are closed chains such as [A B C A].
	Cycles [][]string
	// Dropped counts drafts removed for type or endpoint problems.
	Dropped int
}

// Resolver filters draft relations. It is stateless between calls.
type Resolver struct {
	allowed map[string]struct{}
	names   []string
	stop    bool
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, log *zap.Logger) *Resolver {
	types := cfg.AllowedTypes
	if len(types) == 0 {
		types = DefaultAllowed
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return &Resolver{
		allowed: allowed,
		names:   types,
		stop:    cfg.StopOnCriticalError,
		logger:  logger.OrNop(log),
	}
}

// Resolve validates drafts against entities. Missing endpoints and cycles
// are reported in the result and logged, never returned as errors.
func (r *Resolver) Resolve(drafts []models.Relation, entities []models.Entity) (*Result, error) {
	typed, err := r.filterTypes(drafts)
	if err != nil {
		return nil, err
	}

	names := models.EntityNames(entities)

	res := &Result{Dropped: len(drafts) - len(typed)}
	seen := make(map[string]struct{})
	report := func(name, direction string) {
		w := name + " (" + direction + ")"
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		res.MissingReferences = append(res.MissingReferences, w)
	}

	for _, rel := range typed {
		_, fromOK := names[rel.From]
		_, toOK := names[rel.To]
		if !fromOK {
			report(rel.From, "from")
		}
		if !toOK {
			report(rel.To, "to")
		}
		if fromOK && toOK {
			res.Relations = append(res.Relations, rel)
		} else {
			res.Dropped++
		}
	}

	if len(res.MissingReferences) > 0 {
		r.logger.Warn("relations reference missing entities",
			zap.Strings("missing", res.MissingReferences))
	}

	res.Cycles = DetectCycles(res.Relations)
	for _, c := range res.Cycles {
		r.logger.Warn("Circular dependency detected: " + strings.Join(c, " → "))
	}

	return res, nil
}

// filterTypes drops incomplete drafts and drafts outside the vocabulary.
func (r *Resolver) filterTypes(drafts []models.Relation) ([]models.Relation, error) {
	kept := make([]models.Relation, 0, len(drafts))
	var invalid []string
	seen := make(map[string]struct{})

	for _, d := range drafts {
		if d.From == "" || d.To == "" || d.RelationType == "" {
			continue
		}
		if _, ok := r.allowed[d.RelationType]; !ok {
			if _, dup := seen[d.RelationType]; !dup {
				seen[d.RelationType] = struct{}{}
				invalid = append(invalid, d.RelationType)
			}
			continue
		}
		kept = append(kept, d)
	}

	if len(invalid) > 0 {
		if r.stop {
			return nil, builderrors.New(builderrors.ErrorTypeValidation,
				"Invalid relation types: "+strings.Join(invalid, ", ")+". Allowed: "+strings.Join(r.names, ", ")).
				WithDetail("types", invalid)
		}
		r.logger.Debug("dropped relations with disallowed types", zap.Strings("types", invalid))
	}
	return kept, nil
}
