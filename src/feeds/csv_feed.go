package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// timestamp layouts tried in order before falling back to unix seconds
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CsvBarFeed loads a whole bar series from a CSV file with a header row. Columns are
// located by header name, so their order in the file does not matter.
type CsvBarFeed struct {
	filePath  string
	schema    datamodels.CsvBarSchema
	startTime time.Time
	endTime   time.Time
}

type CsvBarFeedBuilder struct {
	filePath  string
	schema    *datamodels.CsvBarSchema
	startTime *time.Time
	endTime   *time.Time
}

func NewCsvBarFeedBuilder(filePath string) *CsvBarFeedBuilder {
	return &CsvBarFeedBuilder{
		filePath: filePath,
	}
}

func (b *CsvBarFeedBuilder) WithSchema(schema datamodels.CsvBarSchema) *CsvBarFeedBuilder {
	b.schema = &schema
	return b
}

func (b *CsvBarFeedBuilder) WithStartTime(startTime time.Time) *CsvBarFeedBuilder {
	b.startTime = &startTime
	return b
}

func (b *CsvBarFeedBuilder) WithEndTime(endTime time.Time) *CsvBarFeedBuilder {
	b.endTime = &endTime
	return b
}

func (b *CsvBarFeedBuilder) Build() (*CsvBarFeed, error) {
	if b.filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	feed := &CsvBarFeed{
		filePath: b.filePath,
		schema:   datamodels.DefaultCsvBarSchema(),
	}
	if b.schema != nil {
		feed.schema = mergeSchema(*b.schema)
	}
	if b.startTime != nil {
		feed.startTime = *b.startTime
	}
	if b.endTime != nil {
		feed.endTime = *b.endTime
	}
	if !feed.startTime.IsZero() && !feed.endTime.IsZero() && feed.endTime.Before(feed.startTime) {
		return nil, fmt.Errorf("end time is before start time")
	}
	return feed, nil
}

func (c *CsvBarFeed) GetName() string {
	return "CsvBarFeed_" + strings.TrimSuffix(filepath.Base(c.filePath), filepath.Ext(c.filePath))
}

// Load reads, sorts and filters the bars.
func (c *CsvBarFeed) Load() ([]datamodels.Bar, error) {
	file, err := os.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file at %s: %w", c.filePath, err)
	}
	defer file.Close()

	bars, err := ReadBars(file, c.schema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read bars from %s", c.filePath)
	}
	filtered := filterBars(bars, c.startTime, c.endTime)
	slog.Info("Loaded bars", "feed", c.GetName(), "rows", len(bars), "in_range", len(filtered))
	return filtered, nil
}

// LoadBarsFromCsv reads every bar of the file, ordered by timestamp.
func LoadBarsFromCsv(path string, schema datamodels.CsvBarSchema) ([]datamodels.Bar, error) {
	feed, err := NewCsvBarFeedBuilder(path).WithSchema(schema).Build()
	if err != nil {
		return nil, err
	}
	return feed.Load()
}

// ReadBars parses CSV rows with a header into bars sorted by timestamp. The timestamp
// and close columns are required, the others default to zero.
func ReadBars(r io.Reader, schema datamodels.CsvBarSchema) ([]datamodels.Bar, error) {
	schema = mergeSchema(schema)
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.MissingField(schema.TimestampColName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	index := func(name string) int {
		if i, ok := columns[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	timestampIdx := index(schema.TimestampColName)
	if timestampIdx == -1 {
		return nil, errors.MissingField(schema.TimestampColName)
	}
	closeIdx := index(schema.CloseColName)
	if closeIdx == -1 {
		return nil, errors.MissingField(schema.CloseColName)
	}
	openIdx := index(schema.OpenColName)
	highIdx := index(schema.HighColName)
	lowIdx := index(schema.LowColName)
	volumeIdx := index(schema.VolumeColName)

	bars := make([]datamodels.Bar, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		timestamp, err := parseTimestamp(cell(record, timestampIdx))
		if err != nil {
			return nil, errors.WrapE(errors.Newf("line %d", line), err)
		}
		closePrice, err := parseRequired(cell(record, closeIdx), schema.CloseColName)
		if err != nil {
			return nil, errors.WrapE(errors.Newf("line %d", line), err)
		}
		bar := datamodels.Bar{Timestamp: timestamp, Close: closePrice}
		for _, optional := range []struct {
			idx   int
			name  string
			value *float64
		}{
			{openIdx, schema.OpenColName, &bar.Open},
			{highIdx, schema.HighColName, &bar.High},
			{lowIdx, schema.LowColName, &bar.Low},
			{volumeIdx, schema.VolumeColName, &bar.Volume},
		} {
			v, err := parseOptional(cell(record, optional.idx), optional.name)
			if err != nil {
				return nil, errors.WrapE(errors.Newf("line %d", line), err)
			}
			*optional.value = v
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Equal(bars[i-1].Timestamp) {
			return nil, errors.InvalidParameter("timestamp", "duplicate bar at %s", bars[i].Timestamp.Format(time.RFC3339))
		}
	}
	return bars, nil
}

func mergeSchema(schema datamodels.CsvBarSchema) datamodels.CsvBarSchema {
	defaults := datamodels.DefaultCsvBarSchema()
	for _, col := range []struct {
		value    *string
		fallback string
	}{
		{&schema.TimestampColName, defaults.TimestampColName},
		{&schema.OpenColName, defaults.OpenColName},
		{&schema.HighColName, defaults.HighColName},
		{&schema.LowColName, defaults.LowColName},
		{&schema.CloseColName, defaults.CloseColName},
		{&schema.VolumeColName, defaults.VolumeColName},
	} {
		if *col.value == "" {
			*col.value = col.fallback
		}
	}
	return schema
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.MissingField("timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.InvalidParameter("timestamp", "unrecognised timestamp %q", value)
	}
	return time.Unix(seconds, 0).UTC(), nil
}

func parseRequired(value string, name string) (float64, error) {
	if value == "" {
		return 0, errors.MissingField(name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) {
		return 0, errors.InvalidParameter(name, "not a number: %q", value)
	}
	return v, nil
}

func parseOptional(value string, name string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return parseRequired(value, name)
}

// filterBars keeps bars inside [start, end]; zero bounds are open.
func filterBars(bars []datamodels.Bar, start time.Time, end time.Time) []datamodels.Bar {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	out := make([]datamodels.Bar, 0, len(bars))
	for _, bar := range bars {
		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Timestamp.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
