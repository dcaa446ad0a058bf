package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = "reqcheck.yaml"

// EnvPrefix prefixes environment overrides, e.g. REQCHECK_PROVIDER_MODEL.
const EnvPrefix = "REQCHECK"

// Defaults used when neither the file nor the environment sets a value.
const (
	DefaultProvider        = "anthropic"
	DefaultAnthropicModel  = "claude-sonnet-4-20250514"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultMaxRetries      = 10
	DefaultBackoff         = "20s"
	DefaultBackoffStrategy = "fixed"
	DefaultStatePath       = ".reqcheck/state.db"
)

// envOverrides mirrors the settings that may come from the environment.
type envOverrides struct {
	ProviderName    string `envconfig:"PROVIDER_NAME"`
	ProviderModel   string `envconfig:"PROVIDER_MODEL"`
	ProviderAPIKey  string `envconfig:"PROVIDER_API_KEY"`
	ProviderBaseURL string `envconfig:"PROVIDER_BASE_URL"`
	MaxRetries      int    `envconfig:"MAX_RETRIES"`
	Backoff         string `envconfig:"BACKOFF"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	LogFile         string `envconfig:"LOG_FILE"`
	StateDriver     string `envconfig:"STATE_DRIVER"`
	StatePath       string `envconfig:"STATE_PATH"`
	ErrorStrategy   string `envconfig:"ERROR_STRATEGY"`
}

// Load loads the project configuration from dir/reqcheck.yaml. A missing
// file yields the defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Interpolate environment variables
		content = []byte(interpolateEnv(string(content)))
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		cfg = defaultConfig()
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns the configuration used when no file exists, with
// environment overrides applied.
func Default() (*Config, error) {
	cfg := defaultConfig()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read %s_* environment: %w", EnvPrefix, err)
	}

	setIf(&cfg.Provider.Name, env.ProviderName)
	setIf(&cfg.Provider.Model, env.ProviderModel)
	setIf(&cfg.Provider.APIKey, env.ProviderAPIKey)
	setIf(&cfg.Provider.BaseURL, env.ProviderBaseURL)
	if env.MaxRetries != 0 {
		cfg.Defaults.MaxRetries = env.MaxRetries
	}
	setIf(&cfg.Defaults.Backoff, env.Backoff)
	setIf(&cfg.Logging.Level, env.LogLevel)
	setIf(&cfg.Logging.File, env.LogFile)
	setIf(&cfg.State.Driver, env.StateDriver)
	setIf(&cfg.State.Path, env.StatePath)
	setIf(&cfg.Pipeline.ErrorStrategy, env.ErrorStrategy)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// interpolateEnv replaces ${env.VAR} and ${VAR} with environment values
func interpolateEnv(content string) string {
	// Match ${env.VAR} pattern
	envPattern := regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	// Match ${VAR} pattern
	varPattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

func defaultConfig() *Config {
	return &Config{
		Name:    "reqcheck",
		Version: "1.0",
		Provider: ProviderConfig{
			Name:  DefaultProvider,
			Model: DefaultAnthropicModel,
		},
		Defaults: DefaultsConfig{
			MaxRetries:      DefaultMaxRetries,
			Backoff:         DefaultBackoff,
			BackoffStrategy: DefaultBackoffStrategy,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		State: StateConfig{
			Driver: "sqlite",
			Path:   DefaultStatePath,
		},
		Pipeline: PipelineConfig{
			ErrorStrategy: ErrorStrategyFailFast,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProvider
	}
	cfg.Provider.Name = strings.ToLower(cfg.Provider.Name)
	if cfg.Provider.Model == "" {
		if cfg.Provider.Name == "openai" {
			cfg.Provider.Model = DefaultOpenAIModel
		} else {
			cfg.Provider.Model = DefaultAnthropicModel
		}
	}
	if cfg.Defaults.MaxRetries == 0 {
		cfg.Defaults.MaxRetries = DefaultMaxRetries
	}
	if cfg.Defaults.Backoff == "" {
		cfg.Defaults.Backoff = DefaultBackoff
	}
	if cfg.Defaults.BackoffStrategy == "" {
		cfg.Defaults.BackoffStrategy = DefaultBackoffStrategy
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.State.Driver == "" {
		cfg.State.Driver = "sqlite"
	}
	if cfg.State.Path == "" && cfg.State.Driver == "sqlite" {
		cfg.State.Path = DefaultStatePath
	}
	if cfg.Pipeline.ErrorStrategy == "" {
		cfg.Pipeline.ErrorStrategy = ErrorStrategyFailFast
	}

	// Load API key from the provider's conventional variable if not set
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "anthropic":
			cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}
