//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/config"
	"crossbot/src/datamodels"
)

func TestMainIntegration(t *testing.T) {
	// test reading config and building db connection
	appConfig, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	db, err := NewDBConnection(appConfig.DatabaseConfig)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	report := sampleReport()
	runId, err := db.WriteBacktestRun(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, report.RunId, runId.String())

	run, err := db.GetBacktestRun(ctx, runId)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", run.Symbol)

	entries, err := db.GetTradeLog(ctx, runId)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, datamodels.TradeTypeBuy, entries[0].TradeType)

	generatorId, err := db.CreateNewMetricGenerator(ctx, datamodels.MetricGenerator{
		MetricGeneratorName: "integration_" + uuid.NewString(),
		MetricGeneratorType: datamodels.MetricGeneratorTypeBacktest,
	})
	require.NoError(t, err)
	assert.NotZero(t, generatorId)

	_, err = db.WriteNewMetric(ctx, datamodels.Metric{
		MetricGeneratorId:   runId.String(),
		MetricGeneratorName: "integration",
		MetricGeneratorType: datamodels.MetricGeneratorTypeBacktest,
		MetricTime:          report.Signals[0].Timestamp,
		MetricName:          datamodels.MetricNamePerformance,
		MetricValue:         []byte(`{"final_return":1}`),
	})
	require.NoError(t, err)

	metrics, err := db.GetMetrics(ctx, runId.String(), datamodels.MetricNamePerformance)
	require.NoError(t, err)
	assert.Len(t, metrics, 1)
}
