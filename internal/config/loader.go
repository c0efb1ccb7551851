package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg = applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetPluginList parses a comma-separated plugin enable list into cfg.
// Empty entries are dropped; an empty list leaves the YAML selection in place.
func SetPluginList(cfg *Config, list string) {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	cfg.PluginList = names
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// applyDefaults fills unset fields from Defaults.
func applyDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.EventsCap <= 0 {
		cfg.Service.EventsCap = defaults.Service.EventsCap
	}
	if cfg.Plugins == nil {
		cfg.Plugins = make(map[string]PluginConf)
	}
	if cfg.Webhook != nil {
		if cfg.Webhook.Path == "" {
			cfg.Webhook.Path = DefaultWebhookPath
		}
		if cfg.Webhook.SignatureHeader == "" {
			cfg.Webhook.SignatureHeader = DefaultSignatureHeader
		}
		if cfg.Webhook.MaxBodySize <= 0 {
			cfg.Webhook.MaxBodySize = DefaultMaxBodySize
		}
	}

	return cfg
}

// Webhook receiver defaults.
const (
	DefaultWebhookPath     = "/webhook/github"
	DefaultSignatureHeader = "X-Hub-Signature-256"
	DefaultMaxBodySize     = 1048576 // 1 MB
)

// Validate performs basic validation on the configuration.
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	// An unexpanded ${VAR} in the token means the variable was not set.
	if envVarPattern.MatchString(cfg.GitHub.Token) {
		matches := envVarPattern.FindStringSubmatch(cfg.GitHub.Token)
		return fmt.Errorf("github.token references undefined environment variable %s", matches[1])
	}

	if cfg.Webhook != nil {
		if cfg.Webhook.Listen == "" {
			return fmt.Errorf("webhook.listen is required when webhook is configured")
		}
		if cfg.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required when webhook is configured")
		}
		if !strings.HasPrefix(cfg.Webhook.Path, "/") {
			return fmt.Errorf("webhook.path must start with / (got %q)", cfg.Webhook.Path)
		}
	}

	return nil
}
