package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/memgraph/internal/pipeline"
	"github.com/ajitpratap0/memgraph/pkg/analyzer"
	"github.com/ajitpratap0/memgraph/pkg/config"
	"github.com/ajitpratap0/memgraph/pkg/logger"
	"github.com/ajitpratap0/memgraph/pkg/observability"
)

var version = "0.1.0"

const envPrefix = "MEMGRAPH"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the settings shared by every subcommand. Flags and MEMGRAPH_*
// environment variables are read through viper and win over builder.yaml.
type cli struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "memgraph",
		Short: "memgraph - compile YAML profiles into a knowledge graph",
		Long: `memgraph reads hierarchical profile documents and compiles them into a
flat graph of entities and relations, written as newline-delimited JSON.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.String("config", "builder.yaml", "Path to the build configuration")
	flags.String("log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	flags.String("log-format", "", "Log encoding (console, json); overrides logging.format")
	flags.Int("workers", 0, "Documents compiled concurrently; overrides build.process.workers")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile after the build")
	flags.Bool("trace", false, "Export build spans to stderr")
	flags.Duration("timeout", 0, "Abort the build after this long (0 disables)")

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(flags)

	root.AddCommand(
		&cobra.Command{
			Use:   "build",
			Short: "Compile the configured profiles and write the graph",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.build(cmd.Context(), true)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Compile and resolve the profiles without writing output",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.build(cmd.Context(), false)
			},
		},
		&cobra.Command{
			Use:   "profiles",
			Short: "List discoverable profiles and their declared type",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return c.profiles()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Fprintf(c.stdout, "memgraph v%s\n", version)
				fmt.Fprintf(c.stdout, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(c.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	return root
}

// loadConfig reads builder.yaml and applies flag and environment overrides.
func (c *cli) loadConfig() (*config.BuildConfig, error) {
	cfg, err := config.LoadBuildConfig(c.v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if c.v.IsSet("log-level") {
		cfg.Logging.Level = c.v.GetString("log-level")
	}
	if c.v.IsSet("log-format") {
		cfg.Logging.Format = c.v.GetString("log-format")
	}
	if c.v.IsSet("workers") {
		cfg.Build.Process.Workers = c.v.GetInt("workers")
	}
	if c.v.IsSet("metrics-file") {
		path, err := filepath.Abs(c.v.GetString("metrics-file"))
		if err != nil {
			return nil, err
		}
		cfg.Metrics.Textfile = path
	}
	if c.v.IsSet("trace") {
		cfg.Tracing.Enabled = c.v.GetBool("trace")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) newLogger(cfg *config.BuildConfig) (*zap.Logger, error) {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.Encoding = cfg.Logging.Format
	if err := logger.Init(lc); err != nil {
		return nil, err
	}
	return logger.Get(), nil
}

func (c *cli) build(ctx context.Context, write bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	log, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if timeout := c.v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceVersion: version,
		Writer:         c.stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Warn("failed to flush spans", zap.Error(err))
		}
	}()

	p := pipeline.NewBuildPipeline(cfg, pipeline.Options{
		Logger: log,
		Tracer: tracing.Tracer(),
	})

	var stats *pipeline.Stats
	if write {
		stats, err = p.Run(ctx)
	} else {
		stats, err = p.Validate(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, stats.Summary())
	if !write {
		fmt.Fprintf(c.stdout, "%d warnings, %d missing references, %d cycles\n",
			stats.Warnings(), len(stats.MissingReferences), len(stats.Cycles))
	}
	return nil
}

func (c *cli) profiles() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	log, err := c.newLogger(cfg)
	if err != nil {
		return err
	}

	a := analyzer.New(analyzer.Config{
		Dir:       cfg.Build.ProfilesPath.Domain,
		CommonDir: cfg.Build.ProfilesPath.Common,
		Pattern:   cfg.Build.ProfilesPattern,
	}, nil, nil, log)

	keys, err := a.Discover()
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintf(c.stdout, "%s\t%s\n", key, a.Classify(key))
	}
	return nil
}
