package datamodels

import (
	"time"

	"crossbot/src/utils/errors"
)

type CrossbotConfig struct {
	Symbol         string               `mapstructure:"symbol"`
	StrategyConfig StrategyConfig       `mapstructure:"strategy"`
	DataConfig     DataConfig           `mapstructure:"data"`
	OutputConfig   OutputConfig         `mapstructure:"output"`
	MetricsWriter  *MetricsWriterConfig `mapstructure:"metrics_writer"`
	DatabaseConfig PostgresConfig       `mapstructure:"postgres"`
	InfluxConfig   InfluxConfig         `mapstructure:"influx"`
	StorageConfig  StorageConfig        `mapstructure:"storage"`
	ServerConfig   ServerConfig         `mapstructure:"server"`
}

type PostgresConfig struct {
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	SSL      struct {
		CA   string `mapstructure:"ca"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"ssl"`
	URI  string `mapstructure:"uri"`
	User string `mapstructure:"user"`
}

func (p *PostgresConfig) IsConfigured() bool {
	return p.URI != "" || p.Host != ""
}

type InfluxConfig struct {
	URL          string `mapstructure:"url"`
	Token        string `mapstructure:"token"`
	Organization string `mapstructure:"organization"`
	Bucket       string `mapstructure:"bucket"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	HealthEndpoint  string `mapstructure:"health_endpoint"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// CsvBarSchema names the CSV header columns that map onto Bar fields.
type CsvBarSchema struct {
	TimestampColName string `mapstructure:"timestamp_col_name"`
	OpenColName      string `mapstructure:"open_col_name"`
	HighColName      string `mapstructure:"high_col_name"`
	LowColName       string `mapstructure:"low_col_name"`
	CloseColName     string `mapstructure:"close_col_name"`
	VolumeColName    string `mapstructure:"volume_col_name"`
}

func DefaultCsvBarSchema() CsvBarSchema {
	return CsvBarSchema{
		TimestampColName: "timestamp",
		OpenColName:      "open",
		HighColName:      "high",
		LowColName:       "low",
		CloseColName:     "close",
		VolumeColName:    "volume",
	}
}

type DataConfig struct {
	CsvPath   string       `mapstructure:"csv_path"`
	StartTime string       `mapstructure:"start_time"`
	EndTime   string       `mapstructure:"end_time"`
	Schema    CsvBarSchema `mapstructure:"schema"`
}

// TimeRange parses the optional start and end bounds. Zero values mean unbounded.
func (d *DataConfig) TimeRange() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if d.StartTime != "" {
		start, err = time.Parse(time.RFC3339, d.StartTime)
		if err != nil {
			return start, end, errors.Wrapf(err, "invalid start_time %q", d.StartTime)
		}
	}
	if d.EndTime != "" {
		end, err = time.Parse(time.RFC3339, d.EndTime)
		if err != nil {
			return start, end, errors.Wrapf(err, "invalid end_time %q", d.EndTime)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, errors.New("end_time is before start_time")
	}
	return start, end, nil
}

type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	ModelName  string `mapstructure:"model_name"`
	PlotDir    string `mapstructure:"plot_dir"`
	DateLayout string `mapstructure:"date_layout"`
}

type MetricsWriterConfig struct {
	WsWriter     bool   `mapstructure:"ws_writer"`
	FileWriter   bool   `mapstructure:"file_writer"`
	FilePath     string `mapstructure:"file_path"`
	FileFormat   string `mapstructure:"file_format"`
	DbWriter     bool   `mapstructure:"db_writer"`
	InfluxWriter bool   `mapstructure:"influx_writer"`
}

func (c *CrossbotConfig) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}
	if c.DataConfig.CsvPath == "" {
		return errors.New("data.csv_path is required")
	}
	if _, _, err := c.DataConfig.TimeRange(); err != nil {
		return err
	}
	if c.OutputConfig.Dir == "" {
		return errors.New("output.dir is required")
	}
	if c.MetricsWriter != nil {
		if c.MetricsWriter.FileWriter && c.MetricsWriter.FilePath == "" {
			return errors.New("metrics_writer.file_path is required when file_writer is set")
		}
		if c.MetricsWriter.DbWriter && !c.DatabaseConfig.IsConfigured() {
			return errors.New("postgres config is required when db_writer is set")
		}
		if c.MetricsWriter.InfluxWriter && (c.InfluxConfig.URL == "" || c.InfluxConfig.Bucket == "") {
			return errors.New("influx url and bucket are required when influx_writer is set")
		}
	}
	return nil
}
