package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Mirror    MirrorConfig    `yaml:"mirror" mapstructure:"mirror"`
	Forecast  ForecastConfig  `yaml:"forecast" mapstructure:"forecast"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig configures the remote CSV source.
type DatasetConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	MinYear int    `yaml:"min_year" mapstructure:"min_year"`
	MaxYear int    `yaml:"max_year" mapstructure:"max_year"`
}

// WarehouseConfig configures the BigQuery project, destination table,
// and credentials. CredentialsJSON takes precedence over
// CredentialsFile; with neither set, application default credentials
// are used.
type WarehouseConfig struct {
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
	Dataset         string `yaml:"dataset" mapstructure:"dataset"`
	Table           string `yaml:"table" mapstructure:"table"`
	Location        string `yaml:"location" mapstructure:"location"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	CredentialsJSON string `yaml:"credentials_json" mapstructure:"credentials_json"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// MirrorConfig configures the MongoDB mirror of the latest summary.
type MirrorConfig struct {
	URI        string `yaml:"uri" mapstructure:"uri"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// ForecastConfig configures the warehouse-side regression model.
// MinYear is the prediction lower bound; the upstream scripts
// disagreed on it (2015 vs 2017), so it is a setting here.
type ForecastConfig struct {
	Country   string `yaml:"country" mapstructure:"country"`
	ModelName string `yaml:"model_name" mapstructure:"model_name"`
	MinYear   int    `yaml:"min_year" mapstructure:"min_year"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the dashboard server.
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
	v.SetEnvPrefix("ECOLYZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.url", "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv")
	v.SetDefault("dataset.min_year", 2000)
	v.SetDefault("dataset.max_year", 2022)
	v.SetDefault("warehouse.project_id", "")
	v.SetDefault("warehouse.dataset", "eco_ai_dataset")
	v.SetDefault("warehouse.table", "emissions")
	v.SetDefault("warehouse.location", "")
	v.SetDefault("warehouse.endpoint", "https://bigquery.googleapis.com")
	v.SetDefault("warehouse.credentials_json", "")
	v.SetDefault("warehouse.credentials_file", "")
	v.SetDefault("mirror.uri", "")
	v.SetDefault("mirror.database", "eco_db")
	v.SetDefault("mirror.collection", "emissions_data")
	v.SetDefault("forecast.country", "India")
	v.SetDefault("forecast.model_name", "emissions_forecast")
	v.SetDefault("forecast.min_year", 2015)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ecolyze.db")
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

// Validate checks that the configuration required by a command group
// is present and well-formed. Group is one of "analysis", "forecast",
// or "sync".
func (c *Config) Validate(group string) error {
	if c.Warehouse.ProjectID == "" {
		return eris.New("config: warehouse.project_id is required (set ECOLYZE_WAREHOUSE_PROJECT_ID)")
	}
	if c.Warehouse.Dataset == "" || c.Warehouse.Table == "" {
		return eris.New("config: warehouse.dataset and warehouse.table are required")
	}
	if c.Warehouse.CredentialsJSON != "" {
		if !json.Valid([]byte(c.Warehouse.CredentialsJSON)) {
			return eris.New("config: warehouse.credentials_json is not valid JSON")
		}
	} else if c.Warehouse.CredentialsFile != "" {
		if _, err := os.Stat(c.Warehouse.CredentialsFile); err != nil {
			return eris.Wrapf(err, "config: warehouse.credentials_file %q", c.Warehouse.CredentialsFile)
		}
	}

	switch group {
	case "analysis":
		if c.Mirror.URI == "" {
			return eris.New("config: mirror.uri is required (set ECOLYZE_MIRROR_URI)")
		}
		if c.Dataset.URL == "" {
			return eris.New("config: dataset.url is required")
		}
		if c.Dataset.MinYear > c.Dataset.MaxYear {
			return eris.Errorf("config: dataset.min_year %d exceeds max_year %d", c.Dataset.MinYear, c.Dataset.MaxYear)
		}
	case "forecast":
		if c.Forecast.Country == "" || c.Forecast.ModelName == "" {
			return eris.New("config: forecast.country and forecast.model_name are required")
		}
	case "sync":
		if c.Dataset.URL == "" {
			return eris.New("config: dataset.url is required")
		}
	}

	return nil
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
