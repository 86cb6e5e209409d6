// Package memgraph compiles hierarchical YAML profiles into a knowledge
// graph of entities and relations.
//
// A profile document describes one subject: a free-text description, typed
// relations to other profiles and any number of nested sections. The
// compiler flattens every section into an entity carrying a list of
// observations, validates relations against a configured vocabulary and
// writes the combined graph as newline-delimited JSON.
//
// # Architecture
//
//	builder.yaml -> config -> pipeline.Plan
//	    -> document.Loader -> profile.Compiler   (per document, concurrent)
//	    -> relation.Resolver -> output.Writer     (once per build)
//
// Supporting packages:
//   - pkg/builderrors: typed errors driving the failure policy
//   - pkg/entity: entity validation and observation normalization
//   - pkg/analyzer: profile classification over a bounded LRU cache
//   - pkg/metrics, pkg/observability: Prometheus textfile and OpenTelemetry spans
//   - pkg/compression: optional output compression
//
// # Quick Start
//
//	memgraph build --config builder.yaml
//	memgraph validate --log-level debug
//	memgraph profiles
//
// See cmd/memgraph for the command line and internal/pipeline for the
// build orchestration.
package memgraph
