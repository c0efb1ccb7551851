package config

// Config represents the complete forgebot configuration.
type Config struct {
	Service ServiceConfig         `yaml:"service"`
	GitHub  GitHubConfig          `yaml:"github"`
	Webhook *WebhookConfig        `yaml:"webhook,omitempty"`
	State   StateConfig           `yaml:"state,omitempty"`
	Plugins map[string]PluginConf `yaml:"plugins"`

	// PluginList is an explicit enable list supplied by the entrypoint
	// (comma-separated --plugins flag). When non-empty it selects the
	// registered subset wholesale, overriding the Plugins map selection.
	PluginList []string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	EventsCap int    `yaml:"events_cap,omitempty"`

	// Workflow and RunID identify the CI run that delivered the event.
	// Filled by the entrypoint from its environment, never from YAML.
	Workflow string `yaml:"-"`
	RunID    string `yaml:"-"`
}

// GitHubConfig defines the hosting API credential and endpoint.
type GitHubConfig struct {
	// Token is the API credential. Supports ${ENV_VAR} interpolation.
	Token string `yaml:"token"`

	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string `yaml:"base_url,omitempty"`
}

// WebhookConfig defines the serve-mode webhook receiver.
type WebhookConfig struct {
	Listen          string `yaml:"listen"`
	Path            string `yaml:"path,omitempty"`
	Secret          string `yaml:"secret"`
	SignatureHeader string `yaml:"signature_header,omitempty"`
	MaxBodySize     int64  `yaml:"max_body_size,omitempty"`
}

// StateConfig defines the delivery-log storage location.
type StateConfig struct {
	Path string `yaml:"path,omitempty"`
}

// PluginConf defines configuration for a single plugin.
type PluginConf struct {
	// Enabled is a tri-state flag: a plugin is excluded only when this
	// is explicitly false. Absent configuration means enabled.
	Enabled *bool          `yaml:"enabled,omitempty"`
	Config  map[string]any `yaml:"config,omitempty"`
}

// IsEnabled reports whether this configuration enables the plugin.
// Absence of the flag counts as enabled (opt-out, not opt-in).
func (p PluginConf) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "forgebot",
			LogLevel:  "info",
			EventsCap: 100,
		},
		Plugins: make(map[string]PluginConf),
	}
}
