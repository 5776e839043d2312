package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWorkers is used when the worker count is absent or not positive.
const DefaultWorkers = 4

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, interpolates, parses and validates configuration from a file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", configPath)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", configPath, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// interpolateEnv substitutes ${VAR} references with environment values.
// Unknown variables are left as-is so validation can report them in context.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// applyDefaults fills in values the file may omit. Rule lists become empty
// slices so the evaluator sees "deny everything" rather than nil surprises.
func applyDefaults(cfg *Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Access.Group == nil {
		cfg.Access.Group = []string{}
	}
	if cfg.Access.Private == nil {
		cfg.Access.Private = []string{}
	}
	if cfg.Access.SuperAdmin == nil {
		cfg.Access.SuperAdmin = []string{}
	}
	if cfg.Plugins.Bullshit.MaxLength <= 0 {
		cfg.Plugins.Bullshit.MaxLength = 6000
	}
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if !strings.EqualFold(cfg.Transport.Type, "http") {
		return fmt.Errorf("transport.type %q is not supported (only \"http\")", cfg.Transport.Type)
	}
	if cfg.Transport.ListenHost == "" {
		return fmt.Errorf("transport.listen_host is required")
	}
	if cfg.Transport.ListenPort <= 0 || cfg.Transport.ListenPort > 65535 {
		return fmt.Errorf("transport.listen_port %d is out of range", cfg.Transport.ListenPort)
	}
	if cfg.Transport.SendHost == "" {
		return fmt.Errorf("transport.send_host is required")
	}
	if cfg.Transport.SendPort <= 0 || cfg.Transport.SendPort > 65535 {
		return fmt.Errorf("transport.send_port %d is out of range", cfg.Transport.SendPort)
	}
	if cfg.Plugins.Fortune.Enabled && cfg.Plugins.Fortune.StatePath == "" {
		return fmt.Errorf("plugins.fortune.state_path is required when the fortune plugin is enabled")
	}
	if cfg.Plugins.Restart.Enabled && cfg.Plugins.Restart.StatePath == "" {
		return fmt.Errorf("plugins.restart.state_path is required when the restart plugin is enabled")
	}
	if cfg.Plugins.Bullshit.Enabled && cfg.Plugins.Bullshit.CorpusPath == "" {
		return fmt.Errorf("plugins.bullshit.corpus_path is required when the bullshit plugin is enabled")
	}
	if cfg.Plugins.Share.Enabled && cfg.Plugins.Share.Path == "" {
		return fmt.Errorf("plugins.share.path is required when the share plugin is enabled")
	}
	return nil
}

// ListenAddr returns the host:port the inbound listener binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Transport.ListenHost, c.Transport.ListenPort)
}

// SendBaseURL returns the base URL of the outbound platform API.
func (c *Config) SendBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Transport.SendHost, c.Transport.SendPort)
}
