package database

import (
	"context"

	"crossbot/src/datamodels"
)

type MetricsDatabase interface {
	CreateNewMetricGenerator(ctx context.Context, metricGenerator datamodels.MetricGenerator) (int64, error)
	WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error)
	GetMetrics(ctx context.Context, metricGeneratorId string, metricName string) ([]datamodels.Metric, error)
}

// CreateNewMetricGenerator returns the id of the created generator row.
func (a *databaseImplementation) CreateNewMetricGenerator(ctx context.Context, metricGenerator datamodels.MetricGenerator) (int64, error) {
	tx := a.gormDb.WithContext(ctx).Create(&metricGenerator)
	return metricGenerator.Id, tx.Error
}

func (a *databaseImplementation) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	tx := a.gormDb.WithContext(ctx).Create(&metric)
	return tx.RowsAffected, tx.Error
}

func (a *databaseImplementation) GetMetrics(ctx context.Context, metricGeneratorId string, metricName string) ([]datamodels.Metric, error) {
	var values []datamodels.Metric
	err := a.gormDb.WithContext(ctx).
		Where("metric_generator_id = ? AND metric_name = ?", metricGeneratorId, metricName).
		Order("metric_time ASC").
		Find(&values).Error
	return values, err
}
