package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful predictions and explanations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed predictions and explanations.
	OutcomeError = "error"
	// OutcomeSkipped labels predictions that did not request an explanation.
	OutcomeSkipped = "skipped"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "predictions_total",
			Help:      "Total number of predictions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "prediction_seconds",
			Help:      "End-to-end prediction latency in seconds, explanation included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	explanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "explanations_total",
			Help:      "Explanation requests, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	modelProbability = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "model_probability",
			Help:      "Distribution of churn probabilities per model.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"model"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "http_request_seconds",
			Help:      "Latency of HTTP API handlers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)
)

// Register attaches churn collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionDurationSeconds,
		explanationsTotal,
		modelProbability,
		httpRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction records a prediction duration and outcome label.
func ObservePrediction(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionDurationSeconds.Observe(duration.Seconds())
}

// ObserveExplanation counts one explanation outcome.
func ObserveExplanation(outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeError, OutcomeSkipped:
	default:
		outcome = OutcomeError
	}
	explanationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveModelProbability records one model's score.
func ObserveModelProbability(model string, probability float64) {
	modelProbability.WithLabelValues(model).Observe(probability)
}

// ObserveHTTPRequest records one handled HTTP request against its route pattern.
func ObserveHTTPRequest(route, method string, code int, duration time.Duration) {
	httpRequestSeconds.WithLabelValues(route, method, strconv.Itoa(code)).Observe(duration.Seconds())
}
