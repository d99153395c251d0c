package metrics

import (
	"context"
	"encoding/json"
	"log/slog"

	"crossbot/src/database"
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	// Write takes any struct and writes it as metrics
	Write(ctx context.Context, metric datamodels.Metric) error
	// Close cleans up any resources
	Close() error
}

// WriterDeps are the shared connections a writer may need. Nil members disable the
// writers that depend on them.
type WriterDeps struct {
	Db        database.MetricsDatabase
	Influx    datamodels.InfluxConfig
	Websocket *WebsocketMetricsWriter
}

func BuildMetricsWriter(config *datamodels.MetricsWriterConfig, deps WriterDeps) (MetricsWriter, error) {
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, skipping metrics writer")
		return nil, nil
	}
	writers := []MetricsWriter{}
	if config.WsWriter {
		wsWriter := deps.Websocket
		if wsWriter == nil {
			wsWriter = NewWebSocketMetricsWriter()
		}
		writers = append(writers, wsWriter)
	}
	if config.FileWriter {
		format := FileFormat(config.FileFormat)
		if format == "" {
			format = FormatCSV
		}
		metricsWriter, err := NewFileMetricsWriter(config.FilePath, format)
		if err != nil {
			return nil, err
		}
		writers = append(writers, metricsWriter)
	}
	if config.DbWriter {
		if deps.Db == nil {
			return nil, errors.New("db_writer is set but no database connection was provided")
		}
		dbWriter, err := NewDBMetricsWriter(deps.Db)
		if err != nil {
			return nil, err
		}
		writers = append(writers, dbWriter)
	}
	if config.InfluxWriter {
		influxWriter, err := NewInfluxMetricsWriter(deps.Influx)
		if err != nil {
			return nil, err
		}
		writers = append(writers, influxWriter)
	}
	return NewMultiMetricsWriter(writers...), nil
}

// ReportToMetrics turns a report into one performance metric stamped at the last bar and
// one equity metric per backtest point. All metrics share the run id as generator id.
func ReportToMetrics(report *datamodels.BacktestReport) ([]datamodels.Metric, error) {
	if report == nil || len(report.Backtest) == 0 {
		return nil, nil
	}
	generatorName := report.Symbol + "_" + string(report.Strategy.Type)
	newMetric := func(name string, value any, at datamodels.BacktestPoint) (datamodels.Metric, error) {
		payload, err := json.Marshal(value)
		if err != nil {
			return datamodels.Metric{}, errors.Wrapf(err, "failed to marshal %s metric", name)
		}
		return datamodels.Metric{
			MetricGeneratorId:   report.RunId,
			MetricGeneratorName: generatorName,
			MetricGeneratorType: datamodels.MetricGeneratorTypeBacktest,
			MetricTime:          at.Timestamp,
			MetricName:          name,
			MetricValue:         payload,
		}, nil
	}

	out := make([]datamodels.Metric, 0, len(report.Backtest)+1)
	for _, point := range report.Backtest {
		m, err := newMetric(datamodels.MetricNameEquity, datamodels.EquityMetricValue{
			MarketReturn:     point.MarketReturn,
			StrategyReturn:   point.StrategyReturn,
			CumulativeReturn: point.CumulativeReturn,
		}, point)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	performance, err := newMetric(datamodels.MetricNamePerformance, report.Metrics, report.Backtest[len(report.Backtest)-1])
	if err != nil {
		return nil, err
	}
	return append(out, performance), nil
}

// WriteReport sends every metric of the report through the writer.
func WriteReport(ctx context.Context, writer MetricsWriter, report *datamodels.BacktestReport) error {
	if writer == nil {
		return nil
	}
	reportMetrics, err := ReportToMetrics(report)
	if err != nil {
		return err
	}
	for _, metric := range reportMetrics {
		if err := writer.Write(ctx, metric); err != nil {
			return err
		}
	}
	slog.Debug("Report metrics written", "run_id", report.RunId, "metrics", len(reportMetrics))
	return nil
}
