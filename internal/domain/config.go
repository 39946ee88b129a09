package domain

import "time"

// Config represents the application configuration
type Config struct {
	Credentials  CredentialsConfig  `mapstructure:"credentials"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Browser      BrowserConfig      `mapstructure:"browser"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Server       ServerConfig       `mapstructure:"server"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// CredentialsConfig holds the catalog client credentials
type CredentialsConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// CatalogConfig contains catalog service configuration
type CatalogConfig struct {
	AuthURL          string        `mapstructure:"auth_url"`
	APIURL           string        `mapstructure:"api_url"`
	Games            []string      `mapstructure:"games"`
	DefaultLimit     int           `mapstructure:"default_limit"`
	TitleSearchLimit int           `mapstructure:"title_search_limit"`
	MaxClipAge       time.Duration `mapstructure:"max_clip_age"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// BrowserConfig contains headless browser configuration
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	ExecPath          string        `mapstructure:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ProbeAttempts     int           `mapstructure:"probe_attempts"`
	ProbeInterval     time.Duration `mapstructure:"probe_interval"`
	UserAgentsFile    string        `mapstructure:"user_agents_file"`
	ProxiesFile       string        `mapstructure:"proxies_file"`
	IPLookupURL       string        `mapstructure:"ip_lookup_url"` // empty disables the public IP line
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir   string        `mapstructure:"output_dir"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // 0 waits on the context alone
	LogsDir     string        `mapstructure:"logs_dir"`
}

// HistoryConfig contains download history configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// ServerConfig contains history API server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			AuthURL:          "https://id.twitch.tv/oauth2/token",
			APIURL:           "https://api.twitch.tv/helix",
			Games:            []string{"Age of Empires II", "Deadlock", "Counter-Strike", "Dota 2", "Rust"},
			DefaultLimit:     5,
			TitleSearchLimit: 100,
			MaxClipAge:       4 * 7 * 24 * time.Hour,
			RequestTimeout:   30 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 120 * time.Second,
			ProbeAttempts:     30,
			ProbeInterval:     time.Second,
			UserAgentsFile:    "user_agents.txt",
			ProxiesFile:       "proxies.txt",
			IPLookupURL:       "https://api.ipify.org?format=json",
		},
		Download: DownloadConfig{
			OutputDir:   ".",
			ChunkSize:   1024,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
			IdleTimeout: time.Minute,
			LogsDir:     "$HOME/.clip-extract/logs",
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/.clip-extract/history.db",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}

// HasCredentials reports whether both catalog secrets are set
func (c *Config) HasCredentials() bool {
	return c.Credentials.ClientID != "" && c.Credentials.ClientSecret != ""
}
