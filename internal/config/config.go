// Package config loads the application configuration from config.yaml and
// ABIMO_* environment variables and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/urbanhydro/abimo/internal/fetcher"
	"github.com/urbanhydro/abimo/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Run        RunConfig        `yaml:"run" mapstructure:"run"`
	Fetch      fetcher.Options  `yaml:"fetch" mapstructure:"fetch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history database. An empty driver
// disables run tracking.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	WorkDir        string   `yaml:"work_dir" mapstructure:"work_dir"`
}

// RunConfig tunes batch runs.
type RunConfig struct {
	Workers          int           `yaml:"workers" mapstructure:"workers"`
	BatchSize        int           `yaml:"batch_size" mapstructure:"batch_size"`
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval"`
	ExportResults    bool          `yaml:"export_results" mapstructure:"export_results"`
	SRID             int           `yaml:"srid" mapstructure:"srid"`
	CSVDelimiter     string        `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVLatin1        bool          `yaml:"csv_latin1" mapstructure:"csv_latin1"`
}

// MonitoringConfig configures the background run checker of the server.
type MonitoringConfig struct {
	Enabled                 bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs       int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours     int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold    float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DiagnosticRateThreshold float64 `yaml:"diagnostic_rate_threshold" mapstructure:"diagnostic_rate_threshold"`
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// Load reads configuration from file and environment. An empty file
// searches config.yaml in the working directory; a missing default file is
// not an error.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ABIMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "abimo.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.work_dir", "")
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.batch_size", 512)
	v.SetDefault("run.progress_interval", 5*time.Second)
	v.SetDefault("run.export_results", false)
	v.SetDefault("run.srid", 25833)
	v.SetDefault("run.csv_delimiter", ",")
	v.SetDefault("run.csv_latin1", false)
	v.SetDefault("fetch.user_agent", "abimo/1.0")
	v.SetDefault("fetch.timeout", 60*time.Second)
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.retry.attempts", 3)
	v.SetDefault("fetch.retry.backoff", 500*time.Millisecond)
	v.SetDefault("fetch.retry.max_backoff", 30*time.Second)
	v.SetDefault("fetch.retry.jitter", 0.25)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.diagnostic_rate_threshold", 0.0)

	p := model.DefaultParameters()
	v.SetDefault("model.precipitation_correction", p.PrecipitationCorrection)
	v.SetDefault("model.infiltration.roof", p.Infiltration.Roof)
	v.SetDefault("model.infiltration.classes", p.Infiltration.Classes[:])
	v.SetDefault("model.effectiveness.roof", p.Effectiveness.Roof)
	v.SetDefault("model.effectiveness.classes", p.Effectiveness.Classes[:])
	for field, d := range p.Decimals {
		v.SetDefault("model.decimals."+strings.ToLower(field), d)
	}
	v.SetDefault("model.irrigation_to_zero", p.IrrigationToZero)
	v.SetDefault("model.unknown_usage", string(p.UnknownUsage))
	v.SetDefault("model.rounding", string(p.Rounding))
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
