// Package config loads clientgen settings from a config file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/tsgonest/clientgen/internal/analyzer"
)

// EnvPrefix prefixes environment overrides: CLIENTGEN_OUTPUT_PATH sets
// output.path.
const EnvPrefix = "CLIENTGEN"

// ConfigName is the base name searched for when no config file is given
// (clientgen.yaml, clientgen.json, clientgen.toml).
const ConfigName = "clientgen"

// Config represents the clientgen configuration.
type Config struct {
	Project     ProjectConfig     `mapstructure:"project"`
	Controllers ControllersConfig `mapstructure:"controllers"`
	Routes      RoutesConfig      `mapstructure:"routes"`
	Output      OutputConfig      `mapstructure:"output"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Generate    GenerateConfig    `mapstructure:"generate"`
	Log         LogConfig         `mapstructure:"log"`
}

// ProjectConfig locates the Go packages to analyze.
type ProjectConfig struct {
	Dir      string   `mapstructure:"dir"`
	Patterns []string `mapstructure:"patterns"` // go/packages patterns (default "./...")
	Tags     []string `mapstructure:"tags"`     // build tags
}

// ControllersConfig specifies which types are controllers.
type ControllersConfig struct {
	// Pattern is a comma-separated list of doublestar globs, relative to
	// the project directory, selecting controller source files.
	Pattern string `mapstructure:"pattern"`
	// Exclude lists globs of files never searched for controllers.
	Exclude []string `mapstructure:"exclude"`
	Suffix  string   `mapstructure:"suffix"`
}

// RoutesConfig locates the route table.
type RoutesConfig struct {
	Manifest string `mapstructure:"manifest"` // .json, .yaml or .yml
}

// OutputConfig specifies the generated module.
type OutputConfig struct {
	Path       string `mapstructure:"path"`
	ClientName string `mapstructure:"clientName"`
	Envelope   bool   `mapstructure:"envelope"`
}

// AnalysisConfig tunes type analysis.
type AnalysisConfig struct {
	Unwrap           []string `mapstructure:"unwrap"`
	StrictParameters bool     `mapstructure:"strictParameters"`
	CacheSize        int      `mapstructure:"cacheSize"`
}

// GenerateConfig controls when generation runs.
type GenerateConfig struct {
	OnStartup bool `mapstructure:"onStartup"`
}

// LogConfig selects log output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Project: ProjectConfig{
			Dir:      ".",
			Patterns: []string{"./..."},
		},
		Controllers: ControllersConfig{
			Pattern: "**/*_controller.go",
			Suffix:  analyzer.DefaultSuffix,
		},
		Routes: RoutesConfig{
			Manifest: "routes.json",
		},
		Output: OutputConfig{
			Path:       "client/api.ts",
			ClientName: "ApiClient",
		},
		Analysis: AnalysisConfig{
			Unwrap:    append([]string(nil), analyzer.DefaultUnwrap...),
			CacheSize: 4096,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers every key with its default. Keys unknown to viper
// are not picked up from the environment, so all keys are registered.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("project.dir", d.Project.Dir)
	v.SetDefault("project.patterns", d.Project.Patterns)
	v.SetDefault("project.tags", d.Project.Tags)
	v.SetDefault("controllers.pattern", d.Controllers.Pattern)
	v.SetDefault("controllers.exclude", d.Controllers.Exclude)
	v.SetDefault("controllers.suffix", d.Controllers.Suffix)
	v.SetDefault("routes.manifest", d.Routes.Manifest)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.clientName", d.Output.ClientName)
	v.SetDefault("output.envelope", d.Output.Envelope)
	v.SetDefault("analysis.unwrap", d.Analysis.Unwrap)
	v.SetDefault("analysis.strictParameters", d.Analysis.StrictParameters)
	v.SetDefault("analysis.cacheSize", d.Analysis.CacheSize)
	v.SetDefault("generate.onStartup", d.Generate.OnStartup)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// ReadFile reads path into v. With an empty path it searches the working
// directory for clientgen.{yaml,yml,json,toml} and a missing file is not an
// error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %q", path)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load reads a config file (see ReadFile), applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates the settings held by v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		if used := v.ConfigFileUsed(); used != "" {
			return nil, errors.Wrapf(err, "invalid config in %q", used)
		}
		return nil, err
	}
	return &cfg, nil
}

// normalize splits list values that arrive as one comma-separated string,
// which is how environment variables carry them.
func (c *Config) normalize() {
	c.Project.Patterns = splitList(c.Project.Patterns)
	c.Project.Tags = splitList(c.Project.Tags)
	c.Controllers.Exclude = splitList(c.Controllers.Exclude)
	c.Analysis.Unwrap = splitList(c.Analysis.Unwrap)
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
