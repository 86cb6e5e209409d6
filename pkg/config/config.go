// Package config loads and validates the memgraph build configuration.
//
// The configuration is organized into sections:
//   - Build: output path, profile order, directories, relation vocabulary, policy
//   - Path: the placeholder table used by {path.KEY} substitution
//   - Logging: verbosity and encoding
//   - Output, Metrics, Tracing: optional build outputs
//
// Example usage:
//
//	cfg, err := config.LoadBuildConfig("builder.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg.Build.Process.Workers = 8
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"fmt"
	"runtime"

	"github.com/gobwas/glob"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
	"github.com/ajitpratap0/memgraph/pkg/compression"
)

// Error codes attached to configuration errors under the "code" detail.
const (
	CodeNotFound = "ERR_CONFIG_NOT_FOUND"
	CodeParse    = "ERR_CONFIG_PARSE"
	CodeInvalid  = "ERR_CONFIG_INVALID"
	CodeScan     = "ERR_CONFIG_SCAN"
)

// Defaults applied to any setting the document leaves empty.
const (
	DefaultProfilesPattern = "*.{yaml,yml}"
	DefaultRelationType    = "inherits"
	DefaultMaxFileSize     = 1 << 20
	DefaultDomainDir       = "profiles"
	DefaultCommonDir       = "profiles/common"
)

// BuildConfig is the root of builder.yaml.
type BuildConfig struct {
	Build   BuildSection      `yaml:"build" json:"build"`
	Path    map[string]string `yaml:"path" json:"path"`
	Logging LoggingConfig     `yaml:"logging" json:"logging"`
	Output  OutputConfig      `yaml:"output" json:"output"`
	Metrics MetricsConfig     `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig     `yaml:"tracing" json:"tracing"`

	// Dir is the directory of the loaded file. Relative paths are resolved
	// against it.
	Dir string `yaml:"-" json:"-"`
}

// BuildSection holds what to compile and where to write it.
type BuildSection struct {
	OutputPath         string        `yaml:"outputPath" json:"outputPath"`
	AutoDetectProfiles bool          `yaml:"autoDetectProfiles" json:"autoDetectProfiles"`
	Profiles           []string      `yaml:"profiles" json:"profiles"`
	ProfilesPattern    string        `yaml:"profilesPattern" json:"profilesPattern"`
	ProfilesPath       ProfilesPath  `yaml:"profilesPath" json:"profilesPath"`
	Process            ProcessConfig `yaml:"process" json:"process"`
	Relations          []string      `yaml:"relations" json:"relations"`
}

// ProfilesPath points at the profile directories.
type ProfilesPath struct {
	Domain string `yaml:"domain" json:"domain"`
	Common string `yaml:"common" json:"common"`
}

// ProcessConfig controls document sequencing and the failure policy.
type ProcessConfig struct {
	CommonProfilesFirst bool  `yaml:"commonProfilesFirst" json:"commonProfilesFirst"`
	AdditionalProfiles  bool  `yaml:"additionalProfiles" json:"additionalProfiles"`
	StopOnCriticalError bool  `yaml:"stopOnCriticalError" json:"stopOnCriticalError"`
	Workers             int   `yaml:"workers" json:"workers"`
	MaxFileSize         int64 `yaml:"maxFileSize" json:"maxFileSize"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level           string `yaml:"level" json:"level"`
	Format          string `yaml:"format" json:"format"`
	ShowProgress    bool   `yaml:"showProgress" json:"showProgress"`
	ShowFileDetails bool   `yaml:"showFileDetails" json:"showFileDetails"`
}

// OutputConfig controls the output stream.
type OutputConfig struct {
	Compression string `yaml:"compression" json:"compression"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// NewBuildConfig creates a configuration with defaults for everything but
// the output path and profile list.
func NewBuildConfig() *BuildConfig {
	return &BuildConfig{
		Build: BuildSection{
			ProfilesPattern: DefaultProfilesPattern,
			ProfilesPath: ProfilesPath{
				Domain: DefaultDomainDir,
				Common: DefaultCommonDir,
			},
			Process: ProcessConfig{
				CommonProfilesFirst: true,
				StopOnCriticalError: true,
				Workers:             runtime.NumCPU(),
				MaxFileSize:         DefaultMaxFileSize,
			},
			Relations: []string{DefaultRelationType},
		},
		Path: map[string]string{},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			ShowProgress: true,
		},
		Output: OutputConfig{
			Compression: string(compression.None),
		},
	}
}

func (c *BuildConfig) applyDefaults() {
	if len(c.Build.Relations) == 0 {
		c.Build.Relations = []string{DefaultRelationType}
	}
	if c.Build.ProfilesPattern == "" {
		c.Build.ProfilesPattern = DefaultProfilesPattern
	}
	if c.Build.ProfilesPath.Domain == "" {
		c.Build.ProfilesPath.Domain = DefaultDomainDir
	}
	if c.Build.Process.Workers == 0 {
		c.Build.Process.Workers = runtime.NumCPU()
	}
	if c.Build.Process.MaxFileSize == 0 {
		c.Build.Process.MaxFileSize = DefaultMaxFileSize
	}
	if c.Path == nil {
		c.Path = map[string]string{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Output.Compression == "" {
		c.Output.Compression = string(compression.None)
	}
}

// Validate checks the configuration for correctness.
func (c *BuildConfig) Validate() error {
	if c.Build.OutputPath == "" {
		return invalid("build.outputPath is required")
	}
	if !c.Build.AutoDetectProfiles && len(c.Build.Profiles) == 0 {
		return invalid("build.profiles must list at least one profile when autoDetectProfiles is disabled")
	}
	for i, p := range c.Build.Profiles {
		if p == "" {
			return invalid(fmt.Sprintf("build.profiles[%d] is empty", i))
		}
	}
	for i, r := range c.Build.Relations {
		if r == "" {
			return invalid(fmt.Sprintf("build.relations[%d] is empty", i))
		}
	}
	if c.Build.Process.Workers < 1 {
		return invalid(fmt.Sprintf("build.process.workers must be positive, got %d", c.Build.Process.Workers))
	}
	if c.Build.Process.MaxFileSize < 0 {
		return invalid("build.process.maxFileSize must not be negative")
	}
	if _, err := glob.Compile(c.Build.ProfilesPattern); err != nil {
		return invalid(fmt.Sprintf("build.profilesPattern %q is not a valid glob: %v", c.Build.ProfilesPattern, err))
	}
	if _, err := compression.ParseAlgorithm(c.Output.Compression); err != nil {
		return invalid("output.compression: " + err.Error())
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level: " + err.Error())
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return invalid(fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return nil
}

// CompressionAlgorithm returns the parsed output compression.
func (c *BuildConfig) CompressionAlgorithm() compression.Algorithm {
	a, err := compression.ParseAlgorithm(c.Output.Compression)
	if err != nil {
		return compression.None
	}
	return a
}

func invalid(msg string) error {
	return builderrors.New(builderrors.ErrorTypeConfig, msg).WithDetail("code", CodeInvalid)
}
