package feeds

import (
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// BarFeed supplies a complete, timestamp-ordered bar series.
type BarFeed interface {
	GetName() string
	Load() ([]datamodels.Bar, error)
}

// NewBarFeedFromConfig builds the feed described by the data section of the config.
func NewBarFeedFromConfig(config datamodels.DataConfig) (BarFeed, error) {
	if config.CsvPath == "" {
		return nil, errors.MissingField("csv_path")
	}
	startTime, endTime, err := config.TimeRange()
	if err != nil {
		return nil, err
	}
	builder := NewCsvBarFeedBuilder(config.CsvPath).WithSchema(config.Schema)
	if !startTime.IsZero() {
		builder = builder.WithStartTime(startTime)
	}
	if !endTime.IsZero() {
		builder = builder.WithEndTime(endTime)
	}
	feed, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return feed, nil
}
