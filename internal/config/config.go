// Package config loads application configuration from config.yaml and
// ROSTER_-prefixed environment variables, and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/pipeline"
)

// Config holds the full application configuration.
type Config struct {
	Match     match.Config           `yaml:"match" mapstructure:"match"`
	Outliers  pipeline.OutlierConfig `yaml:"outliers" mapstructure:"outliers"`
	Merge     MergeConfig            `yaml:"merge" mapstructure:"merge"`
	Store     StoreConfig            `yaml:"store" mapstructure:"store"`
	Sync      SyncConfig             `yaml:"sync" mapstructure:"sync"`
	Anthropic AnthropicConfig        `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig           `yaml:"server" mapstructure:"server"`
	Log       LogConfig              `yaml:"log" mapstructure:"log"`
}

// MergeConfig configures the roster merge phase.
type MergeConfig struct {
	// BasePath is the directory holding the auxiliary roster files
	// (ca.csv, ny.csv, npi_registry.csv, mock_npi_registry.csv).
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SyncConfig configures downloads of external roster files.
type SyncConfig struct {
	Sources     []SyncSource `yaml:"sources" mapstructure:"sources"`
	TimeoutSecs int          `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int          `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string       `yaml:"user_agent" mapstructure:"user_agent"`
}

// SyncSource is one remote roster file to mirror into the merge base path.
type SyncSource struct {
	Name string `yaml:"name" mapstructure:"name"`
	URL  string `yaml:"url" mapstructure:"url"`
	// Target is the filename under merge.base_path. Defaults to Name.
	Target string `yaml:"target" mapstructure:"target"`
	// ZipEntry, when set, extracts the named file from a downloaded
	// archive instead of keeping the archive itself.
	ZipEntry string `yaml:"zip_entry" mapstructure:"zip_entry"`
	// Sheet, when set, converts that spreadsheet sheet to CSV after
	// download.
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// AnthropicConfig holds settings for the natural-language query feature.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("match.threshold", 0.72)
	v.SetDefault("match.ngram_size", 2)
	v.SetDefault("match.parallel", false)
	v.SetDefault("match.min_block", 1)
	v.SetDefault("match.max_block", 500)
	v.SetDefault("match.sort_block_size", 40)
	v.SetDefault("outliers.enabled", true)
	v.SetDefault("outliers.min", 0)
	v.SetDefault("outliers.max", 60)
	v.SetDefault("merge.base_path", ".")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "roster.db")
	v.SetDefault("sync.timeout_secs", 30)
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.user_agent", "roster-cli/1.0")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
