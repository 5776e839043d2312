package config

// Config represents the complete botgw configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Transport TransportConfig `yaml:"transport"`
	Workers   int             `yaml:"workers"`
	Access    AccessConfig    `yaml:"access"`
	Plugins   PluginsConfig   `yaml:"plugins"`
}

// ServiceConfig defines core service settings. LockPath, when set, enables
// the single-instance PID lock.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LockPath  string `yaml:"lock_path"`
}

// TransportConfig defines how events arrive and how actions are sent back.
// Type must be "http" (case-insensitive); it is the only supported mode.
type TransportConfig struct {
	Type       string `yaml:"type"`
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`
	SendHost   string `yaml:"send_host"`
	SendPort   int    `yaml:"send_port"`
}

// AccessConfig holds the three identity rule lists.
//
// Group and Private follow the allow/deny rule grammar evaluated by
// internal/access: empty list denies everything, ["all"] allows everything,
// "all" plus entries is a blacklist, anything else is a whitelist.
// SuperAdmin is the set of identities permitted to use the admin command.
type AccessConfig struct {
	Group      []string `yaml:"group"`
	Private    []string `yaml:"private"`
	SuperAdmin []string `yaml:"superadmin"`
}

// PluginsConfig holds per-plugin settings for the bundled handlers.
type PluginsConfig struct {
	Hello    HelloConfig    `yaml:"hello"`
	Fortune  FortuneConfig  `yaml:"fortune"`
	Restart  RestartConfig  `yaml:"restart"`
	Bullshit BullshitConfig `yaml:"bullshit"`
	Chat     ChatConfig     `yaml:"chat"`
	Share    ShareConfig    `yaml:"share"`
}

// HelloConfig configures the hello plugin.
type HelloConfig struct {
	Enabled bool `yaml:"enabled"`
}

// FortuneConfig configures the daily-fortune plugin.
type FortuneConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StatePath string `yaml:"state_path"`
}

// RestartConfig configures the life-restart plugin.
type RestartConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StatePath string `yaml:"state_path"`
}

// BullshitConfig configures the article-generator plugin.
type BullshitConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CorpusPath string `yaml:"corpus_path"`
	MaxLength  int    `yaml:"max_length"`
}

// ChatConfig configures the completion-API plugin. The endpoint must speak
// the OpenAI chat-completions protocol; BaseURL selects the provider.
type ChatConfig struct {
	Enabled      bool    `yaml:"enabled"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float32 `yaml:"temperature"`
}

// ShareConfig configures the file-share plugin.
type ShareConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with defaults applied everywhere the loader
// tolerates absence.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "botgw",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Transport: TransportConfig{
			Type:       "http",
			ListenHost: "127.0.0.1",
			ListenPort: 8080,
			SendHost:   "127.0.0.1",
			SendPort:   5700,
		},
		Workers: DefaultWorkers,
		Access: AccessConfig{
			Group:      []string{},
			Private:    []string{},
			SuperAdmin: []string{},
		},
		Plugins: PluginsConfig{
			Hello:   HelloConfig{Enabled: true},
			Fortune: FortuneConfig{Enabled: false},
			Restart: RestartConfig{Enabled: false},
			Bullshit: BullshitConfig{
				Enabled:   false,
				MaxLength: 6000,
			},
			Chat: ChatConfig{
				Enabled:     false,
				Model:       "deepseek-chat",
				BaseURL:     "https://api.deepseek.com/v1",
				Temperature: 0.7,
			},
			Share: ShareConfig{Enabled: false},
		},
	}
}
