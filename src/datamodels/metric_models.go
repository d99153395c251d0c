package datamodels

import (
	"time"
)

type MetricGeneratorType string

const (
	MetricGeneratorTypeBacktest MetricGeneratorType = "backtest"
	MetricGeneratorTypeStrategy MetricGeneratorType = "strategy"
)

const (
	MetricNamePerformance = "performance"
	MetricNameEquity      = "equity"
)

// metric value is a json document, scalar or object
type Metric struct {
	BaseModel
	MetricGeneratorId   string              `gorm:"not null;index" json:"metric_generator_id"`
	MetricGeneratorName string              `gorm:"not null;index" json:"metric_generator_name"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index" json:"metric_generator_type"`
	MetricTime          time.Time           `gorm:"not null;index" json:"metric_time"`
	MetricName          string              `gorm:"not null;index" json:"metric_name"`
	MetricValue         []byte              `gorm:"not null;type:json" json:"metric_value"`
}

type MetricGenerator struct {
	BaseModel
	MetricGeneratorName string              `gorm:"not null;index"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index"`
}

// EquityMetricValue is the payload of an equity metric, one per backtest bar.
type EquityMetricValue struct {
	MarketReturn     *float64 `json:"market_return"`
	StrategyReturn   *float64 `json:"strategy_return"`
	CumulativeReturn float64  `json:"cumulative_return"`
}
