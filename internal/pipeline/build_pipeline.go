// Package pipeline drives a memgraph build from configuration to output.
//
// # Overview
//
// A build plans the documents to compile, compiles them on a bounded
// worker pool, resolves the relations of the combined graph and writes the
// result. Workers fill slots indexed by input position, so the aggregated
// graph, the statistics and the document that aborts a failing build never
// depend on which worker finished first.
//
// # Architecture
//
//	Plan -> [load + compile] x workers -> aggregate -> Resolver -> Writer
//
// The resolver and the writer each run once, after every document has
// settled. A failed build writes nothing.
//
// # Basic Usage
//
//	cfg, err := config.LoadBuildConfig("builder.yaml")
//	if err != nil {
//	    return err
//	}
//	p := pipeline.NewBuildPipeline(cfg, pipeline.Options{Logger: logger})
//	stats, err := p.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(stats.Summary())
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/memgraph/pkg/analyzer"
	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/cache"
	"github.com/ajitpratap0/memgraph/pkg/config"
	"github.com/ajitpratap0/memgraph/pkg/document"
	"github.com/ajitpratap0/memgraph/pkg/entity"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/metrics"
	"github.com/ajitpratap0/memgraph/pkg/models"
	"github.com/ajitpratap0/memgraph/pkg/observability"
	"github.com/ajitpratap0/memgraph/pkg/output"
	"github.com/ajitpratap0/memgraph/pkg/profile"
	"github.com/ajitpratap0/memgraph/pkg/relation"
)

// Options carries the collaborators of a BuildPipeline. Every field is
// optional.
type Options struct {
	Logger  *zap.Logger
	Tracer  trace.Tracer
	Metrics *metrics.BuildMetrics
	// Cache holds parsed profile structures for the analyzer.
	Cache cache.Cache[document.Value]
	// Home overrides the directory "~" expands to in path placeholders.
	Home string
}

// BuildPipeline compiles the profiles named by a configuration into a
// knowledge graph.
type BuildPipeline struct {
	cfg      *config.BuildConfig
	loader   *document.Loader
	compiler *profile.Compiler
	resolver *relation.Resolver
	writer   *output.Writer
	analyzer *analyzer.TypeAnalyzer
	tracer   trace.Tracer
	metrics  *metrics.BuildMetrics
	logger   *zap.Logger
}

// NewBuildPipeline wires a pipeline for cfg. The configuration is assumed
// to be validated.
func NewBuildPipeline(cfg *config.BuildConfig, opts Options) *BuildPipeline {
	log := logger.OrNop(opts.Logger)

	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewBuildMetrics()
	}

	var substituter *profile.Substituter
	if opts.Home != "" {
		substituter = profile.NewSubstituterWithHome(cfg.Path, opts.Home)
	} else {
		substituter = profile.NewSubstituter(cfg.Path)
	}

	loader := document.NewLoader(cfg.Build.Process.MaxFileSize)
	return &BuildPipeline{
		cfg:    cfg,
		loader: loader,
		compiler: profile.NewCompiler(profile.Options{
			AllowedRelations: cfg.Build.Relations,
			Substituter:      substituter,
			Factory:          entity.NewFactory(),
			Logger:           log,
		}),
		resolver: relation.NewResolver(relation.Config{
			AllowedTypes:        cfg.Build.Relations,
			StopOnCriticalError: cfg.Build.Process.StopOnCriticalError,
		}, log),
		writer: output.NewWriter(output.Config{
			Path:        cfg.Build.OutputPath,
			Compression: cfg.CompressionAlgorithm(),
		}, log),
		analyzer: analyzer.New(analyzer.Config{
			Dir:       cfg.Build.ProfilesPath.Domain,
			CommonDir: cfg.Build.ProfilesPath.Common,
			Pattern:   cfg.Build.ProfilesPattern,
		}, opts.Cache, loader, log),
		tracer:  tracer,
		metrics: m,
		logger:  log,
	}
}

// Metrics returns the collectors the pipeline records into.
func (p *BuildPipeline) Metrics() *metrics.BuildMetrics {
	return p.metrics
}

// Analyzer returns the profile analyzer, primed with every document the
// last run compiled.
func (p *BuildPipeline) Analyzer() *analyzer.TypeAnalyzer {
	return p.analyzer
}

// Run executes a full build and writes the output file.
func (p *BuildPipeline) Run(ctx context.Context) (*Stats, error) {
	return p.execute(ctx, true)
}

// Validate executes a build without writing output.
func (p *BuildPipeline) Validate(ctx context.Context) (*Stats, error) {
	return p.execute(ctx, false)
}

// docResult is the outcome of one document, stored at its input index.
type docResult struct {
	doc Document
	// profileType is the declared type read from the parsed document.
	profileType string
	result      *profile.Result
	err         error
	duration    time.Duration
}

func (p *BuildPipeline) execute(ctx context.Context, write bool) (stats *Stats, err error) {
	timer := metrics.NewTimer()
	ctx, span := observability.StartSpan(ctx, p.tracer, "build",
		attribute.Bool("write", write),
		attribute.Int("workers", p.cfg.Build.Process.Workers))
	defer func() {
		observability.EndSpan(span, err)
		p.metrics.Finish(timer.Stop(), err == nil)
		p.exportMetrics()
	}()

	docs, err := Plan(p.cfg)
	if err != nil {
		return nil, err
	}
	p.progress("starting build",
		zap.Int("documents", len(docs)),
		zap.Int("workers", p.cfg.Build.Process.Workers))

	results, err := p.processAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	stats = newStats()
	graph, drafts, err := p.aggregate(results, stats)
	if err != nil {
		return nil, err
	}

	resolved, err := p.resolve(ctx, drafts, graph.Entities)
	if err != nil {
		return nil, err
	}
	graph.Relations = resolved.Relations
	stats.MissingReferences = resolved.MissingReferences
	stats.Cycles = resolved.Cycles
	stats.EntitiesCreated = len(graph.Entities)
	stats.RelationsCreated = len(graph.Relations)

	if write {
		summary, err := p.write(ctx, graph)
		if err != nil {
			return nil, err
		}
		stats.OutputPath = summary.Path
		stats.Bytes = summary.Bytes
		p.metrics.AddGraph(summary.Entities, summary.Relations)
	}

	stats.Duration = timer.Stop()
	p.progress("build complete",
		zap.Int("entities", stats.EntitiesCreated),
		zap.Int("relations", stats.RelationsCreated),
		zap.Int("files_processed", stats.FilesProcessed),
		zap.Int("files_skipped", stats.FilesSkipped),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// processAll compiles every document. Document failures are kept in their
// slot; only cancellation of ctx is returned.
func (p *BuildPipeline) processAll(ctx context.Context, docs []Document) ([]docResult, error) {
	results := make([]docResult, len(docs))

	workers := p.cfg.Build.Process.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		i, doc := i, doc
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processDocument(gctx, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *BuildPipeline) processDocument(ctx context.Context, doc Document) (res docResult) {
	timer := metrics.NewTimer()
	_, span := observability.StartSpan(ctx, p.tracer, "document",
		attribute.String("profile", doc.ProfileName),
		attribute.String("source", doc.Source))
	res.doc = doc
	defer func() {
		res.duration = timer.Stop()
		observability.EndSpan(span, res.err)
	}()

	v, err := p.loader.Load(doc.Path)
	if err != nil {
		res.err = err
		return res
	}
	result, err := p.compiler.Compile(doc.ProfileName, doc.Source, v)
	if err != nil {
		res.err = err
		return res
	}
	p.analyzer.Prime(doc.Path, v)
	res.profileType = analyzer.ClassifyDocument(doc.ProfileName, v)
	res.result = result

	if p.cfg.Logging.ShowFileDetails {
		p.logger.Info("compiled profile",
			zap.String("profile", doc.ProfileName),
			zap.String("source", doc.Source),
			zap.Int("entities", len(result.Entities)),
			zap.Int("relations", len(result.Relations)))
	}
	return res
}

// aggregate merges results in input order and applies the failure policy.
func (p *BuildPipeline) aggregate(results []docResult, stats *Stats) (*models.Graph, []models.Relation, error) {
	graph := &models.Graph{}
	var drafts []models.Relation
	owners := make(map[string]string)
	stop := p.cfg.Build.Process.StopOnCriticalError

	for _, r := range results {
		if r.err != nil {
			if stop || builderrors.IsFatal(r.err) {
				p.metrics.ObserveDocument(metrics.StatusFailed, r.duration)
				return nil, nil, processFailure(r.doc, r.err)
			}
			p.metrics.ObserveDocument(metrics.StatusSkipped, r.duration)
			stats.FilesSkipped++
			p.logger.Warn("skipping document",
				zap.String("file", r.doc.Source),
				zap.Error(r.err))
			continue
		}

		p.metrics.ObserveDocument(metrics.StatusProcessed, r.duration)
		stats.FilesProcessed++
		stats.ProfilesByType[r.profileType]++

		for _, e := range r.result.Entities {
			if prev, dup := owners[e.Name]; dup {
				stats.DuplicateEntities = append(stats.DuplicateEntities, e.Name)
				p.logger.Warn("duplicate entity name",
					zap.String("entity", e.Name),
					zap.String("first", prev),
					zap.String("again", r.doc.Source))
			} else {
				owners[e.Name] = r.doc.Source
			}
			graph.Entities = append(graph.Entities, e)
		}
		drafts = append(drafts, r.result.Relations...)
	}

	p.metrics.SetProfiles(stats.ProfilesByType)
	return graph, drafts, nil
}

// processFailure names the document in the error that aborts the build,
// keeping the category and root cause of err.
func processFailure(doc Document, err error) error {
	var be *builderrors.Error
	if !errors.As(err, &be) {
		return builderrors.Wrap(err, builderrors.ErrorTypeDocument, "Failed to process "+doc.Source).
			WithDetail("file", doc.Source)
	}
	out := builderrors.Newf(be.Type, "Failed to process %s: %s", doc.Source, be.Message)
	out.Cause = be.Cause
	out.Stack = be.Stack
	for k, v := range be.Details {
		out.WithDetail(k, v)
	}
	return out.WithDetail("file", doc.Source)
}

func (p *BuildPipeline) resolve(ctx context.Context, drafts []models.Relation, entities []models.Entity) (res *relation.Result, err error) {
	_, span := observability.StartSpan(ctx, p.tracer, "resolve",
		attribute.Int("drafts", len(drafts)),
		attribute.Int("entities", len(entities)))
	defer func() { observability.EndSpan(span, err) }()

	res, err = p.resolver.Resolve(drafts, entities)
	if err != nil {
		return nil, err
	}
	p.metrics.AddRelationWarnings(metrics.WarningMissingReference, len(res.MissingReferences))
	p.metrics.AddRelationWarnings(metrics.WarningCycle, len(res.Cycles))
	p.metrics.AddRelationWarnings(metrics.WarningDropped, res.Dropped)
	p.progress("resolved relations",
		zap.Int("kept", len(res.Relations)),
		zap.Int("dropped", res.Dropped))
	return res, nil
}

func (p *BuildPipeline) write(ctx context.Context, graph *models.Graph) (summary *output.Summary, err error) {
	ctx, span := observability.StartSpan(ctx, p.tracer, "write",
		attribute.String("path", p.writer.Path()))
	defer func() { observability.EndSpan(span, err) }()

	return p.writer.Write(ctx, graph)
}

func (p *BuildPipeline) exportMetrics() {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := p.metrics.WriteTextfile(path); err != nil {
		p.logger.Warn("failed to export metrics", zap.String("path", path), zap.Error(err))
	}
}

func (p *BuildPipeline) progress(msg string, fields ...zap.Field) {
	if p.cfg.Logging.ShowProgress {
		p.logger.Info(msg, fields...)
	} else {
		p.logger.Debug(msg, fields...)
	}
}
