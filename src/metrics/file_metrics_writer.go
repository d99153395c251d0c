package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"crossbot/src/datamodels"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// FileMetricsWriter appends metrics to one file per generator and metric name, in CSV or
// JSON lines format.
type FileMetricsWriter struct {
	dateId     string
	baseDir    string
	files      map[string]*os.File
	csvWriters map[string]*csv.Writer
	fileFormat FileFormat
	mu         sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("unsupported metrics file format %q", format)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}
	now := time.Now()
	todaysDateId := fmt.Sprintf("%d%02d%02d", now.Year(), now.Month(), now.Day())

	return &FileMetricsWriter{
		dateId:     todaysDateId,
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvWriters: make(map[string]*csv.Writer),
		fileFormat: format,
	}, nil
}

// Filename is where metrics of the given generator and name end up.
func (w *FileMetricsWriter) Filename(generatorName string, metricName string) string {
	writerId := fmt.Sprintf("%s_%s_%s", w.dateId, generatorName, metricName)
	return filepath.Join(w.baseDir, fmt.Sprintf("%s.%s", writerId, w.fileFormat))
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	filename := w.Filename(metric.MetricGeneratorName, metric.MetricName)
	file, ok := w.files[filename]
	if !ok {
		_, statErr := os.Stat(filename)
		isNew := os.IsNotExist(statErr)
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open metrics file: %w", err)
		}
		if w.fileFormat == FormatCSV {
			csvWriter := csv.NewWriter(f)
			w.csvWriters[filename] = csvWriter
			if isNew {
				if err := csvWriter.Write(metricHeaders()); err != nil {
					return fmt.Errorf("failed to write CSV headers: %w", err)
				}
			}
		}
		w.files[filename] = f
		file = f
	}

	switch w.fileFormat {
	case FormatJSON:
		jsonBytes, err := json.Marshal(metricLine(metric))
		if err != nil {
			return fmt.Errorf("failed to marshal metric to JSON: %w", err)
		}
		if _, err := file.Write(append(jsonBytes, '\n')); err != nil {
			return fmt.Errorf("failed to write JSON metrics: %w", err)
		}
	case FormatCSV:
		csvWriter := w.csvWriters[filename]
		if err := csvWriter.Write(metricValues(metric)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("error flushing CSV writer: %w", err)
		}
	}

	return nil
}

// metricLine keeps the metric value as embedded JSON instead of base64.
func metricLine(metric datamodels.Metric) any {
	return struct {
		MetricGeneratorId   string                         `json:"metric_generator_id"`
		MetricGeneratorName string                         `json:"metric_generator_name"`
		MetricGeneratorType datamodels.MetricGeneratorType `json:"metric_generator_type"`
		MetricTime          time.Time                      `json:"metric_time"`
		MetricName          string                         `json:"metric_name"`
		MetricValue         json.RawMessage                `json:"metric_value"`
	}{
		MetricGeneratorId:   metric.MetricGeneratorId,
		MetricGeneratorName: metric.MetricGeneratorName,
		MetricGeneratorType: metric.MetricGeneratorType,
		MetricTime:          metric.MetricTime,
		MetricName:          metric.MetricName,
		MetricValue:         json.RawMessage(metric.MetricValue),
	}
}

// metricHeaders are the json names of the metric's own fields; embedded row metadata is
// left out.
func metricHeaders() []string {
	t := reflect.TypeOf(datamodels.Metric{})
	var headers []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag != "" {
			headers = append(headers, strings.Split(jsonTag, ",")[0])
		} else {
			headers = append(headers, field.Name)
		}
	}
	return headers
}

func metricValues(metric datamodels.Metric) []string {
	v := reflect.ValueOf(metric)
	t := v.Type()
	var values []string
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Anonymous {
			continue
		}
		var value string
		switch val := v.Field(i).Interface().(type) {
		case time.Time:
			value = val.Format(time.RFC3339)
		case []byte:
			value = string(val)
		default:
			value = fmt.Sprintf("%v", val)
		}
		values = append(values, value)
	}
	return values
}

func (w *FileMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for filename, file := range w.files {
		if writer := w.csvWriters[filename]; writer != nil {
			writer.Flush()
			if err := writer.Error(); err != nil {
				slog.Error("Failed to flush CSV writer", "file", filename, "error", err)
				lastErr = err
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "file", filename, "error", err)
			lastErr = err
		}
	}
	w.files = make(map[string]*os.File)
	w.csvWriters = make(map[string]*csv.Writer)
	return lastErr
}
