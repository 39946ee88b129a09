package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourusername/clip-extract-go/internal/domain"
)

// LoadConfig loads configuration from defaults, an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
func LoadConfig(configPath string) (*domain.Config, error) {
	// A missing .env is normal; secrets may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.clip-extract")
		v.AddConfigPath("/etc/clip-extract")
	}

	v.SetEnvPrefix("CLIPEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, domain.DefaultConfig())

	// The catalog secrets keep their historical unprefixed names.
	if err := v.BindEnv("credentials.client_id", "CLIPEXTRACT_CREDENTIALS_CLIENT_ID", "CLIENT_ID"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("credentials.client_secret", "CLIPEXTRACT_CREDENTIALS_CLIENT_SECRET", "CLIENT_SECRET"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Decode into a zero value: defaults live in viper, and decoding over
	// DefaultConfig would merge lists element by element.
	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("credentials.client_id", "")
	v.SetDefault("credentials.client_secret", "")

	v.SetDefault("catalog.auth_url", c.Catalog.AuthURL)
	v.SetDefault("catalog.api_url", c.Catalog.APIURL)
	v.SetDefault("catalog.games", c.Catalog.Games)
	v.SetDefault("catalog.default_limit", c.Catalog.DefaultLimit)
	v.SetDefault("catalog.title_search_limit", c.Catalog.TitleSearchLimit)
	v.SetDefault("catalog.max_clip_age", c.Catalog.MaxClipAge)
	v.SetDefault("catalog.request_timeout", c.Catalog.RequestTimeout)

	v.SetDefault("browser.headless", c.Browser.Headless)
	v.SetDefault("browser.exec_path", c.Browser.ExecPath)
	v.SetDefault("browser.navigation_timeout", c.Browser.NavigationTimeout)
	v.SetDefault("browser.probe_attempts", c.Browser.ProbeAttempts)
	v.SetDefault("browser.probe_interval", c.Browser.ProbeInterval)
	v.SetDefault("browser.user_agents_file", c.Browser.UserAgentsFile)
	v.SetDefault("browser.proxies_file", c.Browser.ProxiesFile)
	v.SetDefault("browser.ip_lookup_url", c.Browser.IPLookupURL)

	v.SetDefault("download.output_dir", c.Download.OutputDir)
	v.SetDefault("download.chunk_size", c.Download.ChunkSize)
	v.SetDefault("download.max_attempts", c.Download.MaxAttempts)
	v.SetDefault("download.retry_delay", c.Download.RetryDelay)
	v.SetDefault("download.idle_timeout", c.Download.IdleTimeout)
	v.SetDefault("download.logs_dir", c.Download.LogsDir)

	v.SetDefault("history.database_path", c.History.DatabasePath)

	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)

	v.SetDefault("notification.enabled", c.Notification.Enabled)
	v.SetDefault("notification.method", c.Notification.Method)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.output_path", c.Logging.OutputPath)
}

func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Browser.ExecPath = expandPath(config.Browser.ExecPath)
	config.Browser.UserAgentsFile = expandPath(config.Browser.UserAgentsFile)
	config.Browser.ProxiesFile = expandPath(config.Browser.ProxiesFile)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and a leading ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

func validateConfig(config *domain.Config) error {
	if len(config.Catalog.Games) == 0 {
		return fmt.Errorf("no games configured")
	}

	if config.Catalog.DefaultLimit < 1 {
		return fmt.Errorf("default clip limit must be at least 1")
	}

	if config.Browser.ProbeAttempts < 1 {
		return fmt.Errorf("probe attempts must be at least 1")
	}

	if config.Download.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}

	if config.Download.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1")
	}

	if config.Download.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative")
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// RequireCredentials fails with ErrMissingCredentials unless both catalog secrets are set
func RequireCredentials(config *domain.Config) error {
	if !config.HasCredentials() {
		return domain.NewError(domain.KindAuth, "credentials", domain.ErrMissingCredentials)
	}
	return nil
}
