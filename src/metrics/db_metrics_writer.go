package metrics

import (
	"context"
	"sync"

	"crossbot/src/database"
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// DBMetricsWriter registers each generator once before its first metric is stored.
type DBMetricsWriter struct {
	db         database.MetricsDatabase
	generators map[string]bool
	mu         sync.Mutex
}

func NewDBMetricsWriter(db database.MetricsDatabase) (*DBMetricsWriter, error) {
	return &DBMetricsWriter{
		db:         db,
		generators: make(map[string]bool),
	}, nil
}

func (w *DBMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.generators[metric.MetricGeneratorId] {
		_, err := w.db.CreateNewMetricGenerator(ctx, datamodels.MetricGenerator{
			MetricGeneratorName: metric.MetricGeneratorName,
			MetricGeneratorType: metric.MetricGeneratorType,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to register metric generator %s", metric.MetricGeneratorName)
		}
		w.generators[metric.MetricGeneratorId] = true
	}
	_, err := w.db.WriteNewMetric(ctx, metric)
	return err
}

func (w *DBMetricsWriter) Close() error {
	return nil
}
