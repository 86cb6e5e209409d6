package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/memgraph/pkg/builderrors"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML file into config after substituting ${VAR} references.
func Load(filePath string, config interface{}) error {
	content, err := readConfigFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(content, config); err != nil {
		return parseFailure(filePath, err)
	}
	return nil
}

// LoadBuildConfig loads builder.yaml, applies defaults, resolves relative
// paths against the file's directory, validates it and, when enabled,
// fills the profile list from the domain directory.
func LoadBuildConfig(filePath string) (*BuildConfig, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, builderrors.Wrap(err, builderrors.ErrorTypeConfig, "failed to resolve config path").
			WithDetail("code", CodeNotFound)
	}

	var root yaml.Node
	if err := Load(absPath, &root); err != nil {
		return nil, err
	}
	if !hasMappingKey(&root, "build") {
		return nil, builderrors.New(builderrors.ErrorTypeConfig, "missing build section in "+absPath).
			WithDetail("code", CodeInvalid).
			WithDetail("file", absPath)
	}

	cfg := NewBuildConfig()
	if err := root.Decode(cfg); err != nil {
		return nil, parseFailure(absPath, err)
	}
	cfg.Dir = filepath.Dir(absPath)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ResolvePaths()

	if cfg.Build.AutoDetectProfiles {
		if err := cfg.DetectProfiles(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ResolvePaths makes directory and file settings absolute. A leading ~
// expands to the user's home directory.
func (c *BuildConfig) ResolvePaths() {
	c.Build.OutputPath = c.resolve(c.Build.OutputPath)
	c.Build.ProfilesPath.Domain = c.resolve(c.Build.ProfilesPath.Domain)
	c.Build.ProfilesPath.Common = c.resolve(c.Build.ProfilesPath.Common)
	c.Metrics.Textfile = c.resolve(c.Metrics.Textfile)
}

func (c *BuildConfig) resolve(p string) string {
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) || c.Dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Dir, p)
}

// DetectProfiles replaces the profile list with every matching document in
// the domain directory.
func (c *BuildConfig) DetectProfiles() error {
	names, err := ListDocuments(c.Build.ProfilesPath.Domain, c.Build.ProfilesPattern)
	if err != nil {
		return builderrors.Wrap(err, builderrors.ErrorTypeConfig, "failed to scan profiles directory").
			WithDetail("code", CodeScan).
			WithDetail("dir", c.Build.ProfilesPath.Domain)
	}
	if len(names) == 0 {
		return builderrors.New(builderrors.ErrorTypeConfig, "no profiles found in "+c.Build.ProfilesPath.Domain).
			WithDetail("code", CodeScan)
	}
	c.Build.Profiles = names
	return nil
}

func readConfigFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: config path is supplied by the operator
	if err != nil {
		code := CodeParse
		if errors.Is(err, fs.ErrNotExist) {
			code = CodeNotFound
		}
		return nil, builderrors.Wrap(err, builderrors.ErrorTypeConfig, "failed to read config file").
			WithDetail("code", code).
			WithDetail("file", filePath)
	}
	return []byte(substituteEnvVars(string(data))), nil
}

func parseFailure(filePath string, err error) error {
	return builderrors.Wrap(err, builderrors.ErrorTypeConfig, fmt.Sprintf("failed to parse %s", filePath)).
		WithDetail("code", CodeParse).
		WithDetail("file", filePath)
}

func hasMappingKey(root *yaml.Node, key string) bool {
	n := root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return false
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1].Kind == yaml.MappingNode
		}
	}
	return false
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(m string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(m)[1])
	})
}
