package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"crossbot/src/datamodels"
)

// InfluxMetricsWriter stores metrics as InfluxDB points. The metric name is the
// measurement, the generator identifies the series and numeric payload members become
// fields.
type InfluxMetricsWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxMetricsWriter(cfg datamodels.InfluxConfig) (*InfluxMetricsWriter, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx url and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB is not healthy: %+v", health)
	}
	slog.Info("Connected to InfluxDB", "url", cfg.URL, "bucket", cfg.Bucket)

	return &InfluxMetricsWriter{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
	}, nil
}

func (w *InfluxMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	point, err := metricToPoint(metric)
	if err != nil {
		return err
	}
	if point == nil {
		slog.Debug("Metric has no numeric fields, skipping", "metric", metric.MetricName)
		return nil
	}
	if err := w.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write metric point: %w", err)
	}
	return nil
}

func (w *InfluxMetricsWriter) Close() error {
	w.client.Close()
	return nil
}

// metricToPoint returns nil when the payload carries no numeric value.
func metricToPoint(metric datamodels.Metric) (*write.Point, error) {
	var payload any
	if err := json.Unmarshal(metric.MetricValue, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode metric value: %w", err)
	}

	fields := map[string]interface{}{}
	switch value := payload.(type) {
	case float64:
		fields["value"] = value
	case map[string]any:
		for key, member := range value {
			if number, ok := member.(float64); ok {
				fields[key] = number
			}
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	tags := map[string]string{
		"generator_id":   metric.MetricGeneratorId,
		"generator_name": metric.MetricGeneratorName,
		"generator_type": string(metric.MetricGeneratorType),
	}
	return influxdb2.NewPoint(metric.MetricName, tags, fields, metric.MetricTime), nil
}
