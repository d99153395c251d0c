package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

const EnvPrefix = "CROSSBOT"

var metricsFileFormats = []string{"csv", "json"}

// Load reads the file named by CONFIG_PATH, or config.local.yaml at the repo root.
func Load() (*datamodels.CrossbotConfig, error) {
	// read config path from env var
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		currentDir := general.GetCurrentDir()
		// go up two levels to the repo root
		configPath = filepath.Join(currentDir, "..", "..", "config.local.yaml")
	}
	return LoadFile(configPath)
}

// LoadFile reads a YAML config file. Values not present in the file fall back to the
// defaults and any key can be overridden by an env var such as CROSSBOT_STRATEGY_SHORT_WINDOW.
func LoadFile(configPath string) (*datamodels.CrossbotConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", configPath)
	}

	var crossbotConfig datamodels.CrossbotConfig
	if err := v.Unmarshal(&crossbotConfig); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	return &crossbotConfig, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy.type", string(datamodels.StrategyTypeMovingAverageCrossover))
	v.SetDefault("strategy.short_window", 20)
	v.SetDefault("strategy.long_window", 50)
	v.SetDefault("strategy.min_periods", 0)

	schema := datamodels.DefaultCsvBarSchema()
	v.SetDefault("data.schema.timestamp_col_name", schema.TimestampColName)
	v.SetDefault("data.schema.open_col_name", schema.OpenColName)
	v.SetDefault("data.schema.high_col_name", schema.HighColName)
	v.SetDefault("data.schema.low_col_name", schema.LowColName)
	v.SetDefault("data.schema.close_col_name", schema.CloseColName)
	v.SetDefault("data.schema.volume_col_name", schema.VolumeColName)

	v.SetDefault("output.dir", "outputs")
	v.SetDefault("output.model_name", "moving_average_strategy")
	v.SetDefault("output.date_layout", "2006-01-02T15:04:05Z07:00")

	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.ssl.mode", "disable")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.health_endpoint", "/health")
	v.SetDefault("server.metrics_endpoint", "/ws")
}

// Validate runs the config's own checks plus the ones that need collaborator knowledge.
func Validate(cfg *datamodels.CrossbotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MetricsWriter != nil {
		format := cfg.MetricsWriter.FileFormat
		if cfg.MetricsWriter.FileWriter && format != "" && !general.ItemInSlice(metricsFileFormats, format) {
			return errors.Newf("metrics_writer.file_format must be one of %v, got %q", metricsFileFormats, format)
		}
		if cfg.MetricsWriter.InfluxWriter {
			if ok, msg := general.IsValidURL(cfg.InfluxConfig.URL); !ok {
				return errors.Newf("influx.url is invalid: %s", msg)
			}
		}
	}
	return nil
}
