package database

import "crossbot/src/datamodels"

var DbTables = []interface{}{
	&datamodels.BacktestRun{},
	&datamodels.TradeLogEntry{},
	&datamodels.MetricGenerator{},
	&datamodels.Metric{},
}
