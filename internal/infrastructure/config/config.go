package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	NVD      NVDConfig      `mapstructure:"nvd"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"` // gemini, openai
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"` // optional override
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ScannerConfig configures nmap execution.
type ScannerConfig struct {
	NmapPath       string        `mapstructure:"nmap_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ProfilesPath   string        `mapstructure:"profiles_path"`
	DefaultProfile string        `mapstructure:"default_profile"`
}

// NVDConfig configures the NVD CVE lookup client.
type NVDConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ResultsPerPage int           `mapstructure:"results_per_page"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxParallel    int           `mapstructure:"max_parallel"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per 30s window, 0 = derive from key presence
}

// ReportsConfig configures PDF report output.
type ReportsConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// AuthConfig configures the login credentials and session lifetime.
type AuthConfig struct {
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Load reads configuration from defaults, config files and environment.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Layered loading, priority low to high:
	// defaults → global ~/.molly/config.yaml → local ./config/config.yaml → env vars.
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	globalDir := filepath.Join(os.Getenv("HOME"), ".molly")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	// Local config overlays the global one; first match wins.
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break
		}
	}

	v.SetEnvPrefix("MOLLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Bare provider env vars are honored when no key is configured.
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "gemini" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "local")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/molly.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash-preview-09-2025")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("scanner.nmap_path", "nmap")
	v.SetDefault("scanner.timeout", "300s")
	v.SetDefault("scanner.profiles_path", "config/profiles.yaml")
	v.SetDefault("scanner.default_profile", "default_scan")

	v.SetDefault("nvd.base_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("nvd.results_per_page", 5)
	v.SetDefault("nvd.timeout", "10s")
	v.SetDefault("nvd.max_parallel", 4)

	v.SetDefault("reports.output_dir", "instance/scans")

	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin")
	v.SetDefault("auth.session_ttl", "6h")
	v.SetDefault("auth.cleanup_interval", "10m")
}
