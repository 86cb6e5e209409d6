package pipeline

import (
	"context"
	"os"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/cache"
	"github.com/ajitpratap0/memgraph/pkg/config"
	"github.com/ajitpratap0/memgraph/pkg/document"
	"github.com/ajitpratap0/memgraph/pkg/testutil"
)

const (
	baseProfile = `
BASE:
  type: common
  description: shared base
  standards: [be kind]
`
	widgetProfile = `
WIDGET:
  type: standard
  description: does widgets
  relations:
    - target: BASE
      type: inherits
  config:
    timeout: 30
`
)

type BuildPipelineSuite struct {
	testutil.WorkspaceSuite
}

func TestBuildPipelineSuite(t *testing.T) {
	suite.Run(t, new(BuildPipelineSuite))
}

func (s *BuildPipelineSuite) load(cfgYAML string) *config.BuildConfig {
	cfg, err := config.LoadBuildConfig(s.WriteConfig(cfgYAML))
	s.Require().NoError(err)
	return cfg
}

func (s *BuildPipelineSuite) run(cfg *config.BuildConfig) (*Stats, error) {
	return NewBuildPipeline(cfg, Options{Logger: s.Logger()}).Run(s.Context())
}

func (s *BuildPipelineSuite) TestBuildWritesGraph() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	cfg := s.load(`
build:
  outputPath: out/memory.jsonl
  profiles: [WIDGET.yaml]
  process:
    workers: 2
`)

	stats, err := s.run(cfg)
	s.Require().NoError(err)

	s.Equal(2, stats.FilesProcessed)
	s.Equal(0, stats.FilesSkipped)
	s.Equal(4, stats.EntitiesCreated)
	s.Equal(1, stats.RelationsCreated)
	s.Empty(stats.MissingReferences)
	s.Empty(stats.Cycles)
	s.Equal(map[string]int{"common": 1, "standard": 1}, stats.ProfilesByType)
	s.Equal(s.Path("out", "memory.jsonl"), stats.OutputPath)

	s.Equal([]string{
		`{"type":"entity","name":"BASE","entityType":"base_description","observations":["shared base"]}`,
		`{"type":"entity","name":"standards","entityType":"section","observations":["be kind"]}`,
		`{"type":"entity","name":"WIDGET","entityType":"widget_description","observations":["does widgets"]}`,
		`{"type":"entity","name":"config","entityType":"section","observations":["timeout: 30"]}`,
		`{"type":"relation","from":"WIDGET","to":"BASE","relationType":"inherits"}`,
	}, testutil.ReadLines(s.T(), stats.OutputPath))
	s.Contains(stats.Summary(), "Generated 4 entities and 1 relations from 2 profiles in ")
}

func (s *BuildPipelineSuite) TestOutputIndependentOfWorkerCount() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		s.WriteProfile(name+".yaml", name+":\n  description: profile "+name+"\n  notes: [one, two]\n")
	}
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
  process:
    additionalProfiles: true
`)

	var outputs [][]byte
	for _, workers := range []int{1, 8} {
		cfg.Build.Process.Workers = workers
		stats, err := s.run(cfg)
		s.Require().NoError(err)
		s.Equal(8, stats.FilesProcessed)
		data, err := os.ReadFile(stats.OutputPath)
		s.Require().NoError(err)
		outputs = append(outputs, data)
	}
	s.Equal(string(outputs[0]), string(outputs[1]))
}

func (s *BuildPipelineSuite) TestSameNameInCommonAndDomain() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("BASE.yaml", "BASE:\n  type: standard\n  description: domain base\n")
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [BASE.yaml]
`)

	for _, workers := range []int{1, 4} {
		cfg.Build.Process.Workers = workers
		p := NewBuildPipeline(cfg, Options{
			Logger: s.Logger(),
			Cache:  cache.NewLRU[document.Value](1),
		})
		stats, err := p.Run(s.Context())
		s.Require().NoError(err)
		s.Equal(2, stats.FilesProcessed)
		s.Equal(map[string]int{"common": 1, "standard": 1}, stats.ProfilesByType, "workers=%d", workers)
		s.Equal([]string{"BASE"}, stats.DuplicateEntities)
		s.Equal("standard", p.Analyzer().ProfileType("BASE"), "domain directory wins")
	}
}

func (s *BuildPipelineSuite) TestMissingDocumentStopsBuild() {
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml, MISSING.yaml]
`)

	_, err := s.run(cfg)
	s.Require().Error(err)
	s.True(builderrors.IsType(err, builderrors.ErrorTypeDocument))
	s.Contains(err.Error(), "Failed to process MISSING.yaml")

	_, statErr := os.Stat(s.Path("memory.jsonl"))
	s.True(os.IsNotExist(statErr), "a failed build must not write output")
}

func (s *BuildPipelineSuite) TestFirstFailureInInputOrderWins() {
	s.WriteProfile("BAD1.yaml", "BAD1: [unclosed\n")
	s.WriteProfile("BAD2.yaml", "BAD2: [unclosed\n")
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [BAD1.yaml, BAD2.yaml]
  process:
    workers: 4
`)

	for i := 0; i < 5; i++ {
		_, err := s.run(cfg)
		s.Require().Error(err)
		s.Contains(err.Error(), "Failed to process BAD1.yaml")
	}
}

func (s *BuildPipelineSuite) TestSkipPolicyContinues() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	s.WriteProfile("BROKEN.yaml", "BROKEN: [unclosed\n")
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [BROKEN.yaml, MISSING.yaml, WIDGET.yaml]
  process:
    stopOnCriticalError: false
`)

	stats, err := s.run(cfg)
	s.Require().NoError(err)
	s.Equal(2, stats.FilesSkipped)
	s.Equal(2, stats.FilesProcessed)
	s.Equal(4, stats.EntitiesCreated)
}

func (s *BuildPipelineSuite) TestInvalidRelationTypeAbortsProfile() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("WIDGET.yaml", `
WIDGET:
  description: does widgets
  relations:
    - target: BASE
      type: extends
`)

	s.Run("stop on critical error", func() {
		cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
`)
		_, err := s.run(cfg)
		s.Require().Error(err)
		s.True(builderrors.IsType(err, builderrors.ErrorTypeValidation))
		s.Contains(err.Error(), "Invalid relation type 'extends' in profile 'WIDGET'")
	})

	s.Run("tolerant build drops the whole profile", func() {
		cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
  process:
    stopOnCriticalError: false
`)
		stats, err := s.run(cfg)
		s.Require().NoError(err)
		s.Equal(1, stats.FilesSkipped)
		s.Equal(2, stats.EntitiesCreated)
		s.Equal(0, stats.RelationsCreated)
	})
}

func (s *BuildPipelineSuite) TestMissingReferenceIsDropped() {
	s.WriteProfile("WIDGET.yaml", `
WIDGET:
  description: does widgets
  relations:
    - target: GHOST
      type: inherits
`)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
`)

	stats, err := s.run(cfg)
	s.Require().NoError(err)
	s.Equal([]string{"GHOST (to)"}, stats.MissingReferences)
	s.Equal(0, stats.RelationsCreated)
}

func (s *BuildPipelineSuite) TestCyclesAreReportedAndKept() {
	s.WriteProfile("ALPHA.yaml", `
ALPHA:
  description: first
  relations:
    - target: BETA
      type: inherits
`)
	s.WriteProfile("BETA.yaml", `
BETA:
  description: second
  relations:
    - target: ALPHA
      type: inherits
`)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [ALPHA.yaml, BETA.yaml]
`)

	stats, err := s.run(cfg)
	s.Require().NoError(err)
	s.Equal([][]string{{"ALPHA", "BETA", "ALPHA"}}, stats.Cycles)
	s.Equal(2, stats.RelationsCreated)
}

func (s *BuildPipelineSuite) TestDuplicateEntityNamesAreKept() {
	s.WriteProfile("ONE.yaml", "ONE:\n  config: [a]\n")
	s.WriteProfile("TWO.yaml", "TWO:\n  config: [b]\n")
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [ONE.yaml, TWO.yaml]
`)

	stats, err := s.run(cfg)
	s.Require().NoError(err)
	s.Equal([]string{"config"}, stats.DuplicateEntities)
	s.Equal(2, stats.EntitiesCreated)
	s.Equal(1, stats.Warnings())
}

func (s *BuildPipelineSuite) TestValidateWritesNothing() {
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
`)

	stats, err := NewBuildPipeline(cfg, Options{Logger: s.Logger()}).Validate(s.Context())
	s.Require().NoError(err)
	s.Equal(2, stats.EntitiesCreated)
	s.Equal([]string{"BASE (to)"}, stats.MissingReferences)
	s.Empty(stats.OutputPath)

	_, statErr := os.Stat(s.Path("memory.jsonl"))
	s.True(os.IsNotExist(statErr))
}

func (s *BuildPipelineSuite) TestCancelledContext() {
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
`)

	ctx, cancel := context.WithCancel(s.Context())
	cancel()
	_, err := NewBuildPipeline(cfg, Options{Logger: s.Logger()}).Run(ctx)
	s.Require().ErrorIs(err, context.Canceled)

	_, statErr := os.Stat(s.Path("memory.jsonl"))
	s.True(os.IsNotExist(statErr))
}

func (s *BuildPipelineSuite) TestMetricsTextfile() {
	s.WriteProfile("common/BASE.yaml", baseProfile)
	s.WriteProfile("WIDGET.yaml", widgetProfile)
	cfg := s.load(`
build:
  outputPath: memory.jsonl
  profiles: [WIDGET.yaml]
metrics:
  textfile: metrics/memgraph.prom
`)
	s.Require().NoError(os.MkdirAll(s.Path("metrics"), 0o755))

	p := NewBuildPipeline(cfg, Options{Logger: s.Logger()})
	_, err := p.Run(s.Context())
	s.Require().NoError(err)

	count, err := promtest.GatherAndCount(p.Metrics().Registry(), "memgraph_documents_total")
	s.Require().NoError(err)
	s.Equal(1, count)

	data, err := os.ReadFile(s.Path("metrics", "memgraph.prom"))
	s.Require().NoError(err)
	s.Contains(string(data), `memgraph_documents_total{status="processed"} 2`)
	s.Contains(string(data), "memgraph_entities_total 4")
	s.Contains(string(data), `memgraph_profiles{type="common"} 1`)
}
