package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Growth     GrowthConfig     `yaml:"growth" mapstructure:"growth"`
	FTP        FTPConfig        `yaml:"ftp" mapstructure:"ftp"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the upload webhook server.
type ServerConfig struct {
	Port           int    `yaml:"port" mapstructure:"port"`
	WebhookSecret  string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	MaxSkewSecs    int    `yaml:"max_skew_secs" mapstructure:"max_skew_secs"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// IngestConfig configures file ingestion.
type IngestConfig struct {
	UploadDir     string `yaml:"upload_dir" mapstructure:"upload_dir"`
	OverridesPath string `yaml:"overrides_path" mapstructure:"overrides_path"`
}

// BatchConfig configures the recalculation sweep.
type BatchConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// ScoringConfig carries the tuned scoring heuristics. These are
// business-calibrated constants passed into the scoring functions at
// call time, never read from ambient state.
type ScoringConfig struct {
	WeightRecency   float64 `yaml:"weight_recency" mapstructure:"weight_recency"`
	WeightFrequency float64 `yaml:"weight_frequency" mapstructure:"weight_frequency"`
	WeightMonetary  float64 `yaml:"weight_monetary" mapstructure:"weight_monetary"`
	WeightCadence   float64 `yaml:"weight_cadence" mapstructure:"weight_cadence"`
	WeightPace      float64 `yaml:"weight_pace" mapstructure:"weight_pace"`

	HealthPoorThreshold float64 `yaml:"health_poor_threshold" mapstructure:"health_poor_threshold"`

	// PriorityProducts is the reference set used for coverage and
	// recommendations, in recommendation order.
	PriorityProducts []string `yaml:"priority_products" mapstructure:"priority_products"`
}

// GrowthConfig carries the growth-target heuristics.
type GrowthConfig struct {
	StretchPct      float64 `yaml:"stretch_pct" mapstructure:"stretch_pct"`
	ConservativePct float64 `yaml:"conservative_pct" mapstructure:"conservative_pct"`
	MinOrderAmount  float64 `yaml:"min_order_amount" mapstructure:"min_order_amount"`
	MaxRecommended  int     `yaml:"max_recommended" mapstructure:"max_recommended"`
}

// FTPConfig configures the distributor file-drop fetch.
type FTPConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// NotionConfig holds Notion API credentials and the target database ID.
type NotionConfig struct {
	Token      string  `yaml:"token" mapstructure:"token"`
	PriorityDB string  `yaml:"priority_db" mapstructure:"priority_db"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Validate checks that the configuration is usable for the given mode.
// Modes correspond to command entry points; each checks only what it
// actually needs so offline commands run without API credentials.
func (c *Config) Validate(mode string) error {
	var missing []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		missing = append(missing, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required")
	}
	if c.Batch.Size < 1 || c.Batch.Size > 10000 {
		missing = append(missing, "batch.size must be between 1 and 10000")
	}

	switch mode {
	case "ingest", "recalc", "migrate", "accounts":
		// Store checks above are sufficient.
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
		if c.Server.WebhookSecret == "" {
			missing = append(missing, "server.webhook_secret is required")
		}
	case "fetch":
		if c.FTP.Addr == "" {
			missing = append(missing, "ftp.addr is required")
		}
	case "export-notion":
		if c.Notion.Token == "" {
			missing = append(missing, "notion.token is required")
		}
		if c.Notion.PriorityDB == "" {
			missing = append(missing, "notion.priority_db is required")
		}
	case "export-salesforce":
		if c.Salesforce.ClientID == "" {
			missing = append(missing, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			missing = append(missing, "salesforce.username is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SALESPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "salespulse.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_skew_secs", 300)
	v.SetDefault("server.max_upload_bytes", 64<<20)
	v.SetDefault("ingest.upload_dir", "/tmp/salespulse/uploads")
	v.SetDefault("ingest.overrides_path", "overrides.yaml")
	v.SetDefault("batch.size", 100)
	v.SetDefault("scoring.weight_recency", 25.0)
	v.SetDefault("scoring.weight_frequency", 15.0)
	v.SetDefault("scoring.weight_monetary", 10.0)
	v.SetDefault("scoring.weight_cadence", 25.0)
	v.SetDefault("scoring.weight_pace", 15.0)
	v.SetDefault("scoring.health_poor_threshold", 40.0)
	v.SetDefault("growth.stretch_pct", 0.10)
	v.SetDefault("growth.conservative_pct", 0.01)
	v.SetDefault("growth.min_order_amount", 50.0)
	v.SetDefault("growth.max_recommended", 3)
	v.SetDefault("ftp.timeout_secs", 30)
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 10.0)

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
