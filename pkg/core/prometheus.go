package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// currentHeight prometheus metric.
	currentHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of committed transactions",
			Name:      "current_height",
			Namespace: "aioracle",
		},
	)
	// latestStage prometheus metric.
	latestStage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Stage of the latest oracle request",
			Name:      "latest_stage",
			Namespace: "aioracle",
		},
	)
	// executorSize prometheus metric.
	executorSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of active executors",
			Name:      "executor_size",
			Namespace: "aioracle",
		},
	)
	// txCounter prometheus metric.
	txCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of processed transactions",
			Name:      "transactions_total",
			Namespace: "aioracle",
		},
		[]string{"command", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		currentHeight,
		latestStage,
		executorSize,
		txCounter,
	)
}

func updateHeightMetric(h uint64) {
	currentHeight.Set(float64(h))
}

func updateOracleMetrics(stage, executors uint64) {
	latestStage.Set(float64(stage))
	executorSize.Set(float64(executors))
}

func addTxMetric(command string, ok bool) {
	result := "committed"
	if !ok {
		result = "failed"
	}
	txCounter.WithLabelValues(command, result).Inc()
}
