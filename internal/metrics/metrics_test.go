package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveOutcomes(t *testing.T) {
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues(OutcomeSuccess))
	ObservePrediction(-time.Second, "anything")
	if got := testutil.ToFloat64(predictionsTotal.WithLabelValues(OutcomeSuccess)); got != before+1 {
		t.Fatalf("expected unknown outcomes to count as success, got %v", got)
	}

	beforeErr := testutil.ToFloat64(explanationsTotal.WithLabelValues(OutcomeError))
	ObserveExplanation("timeout")
	if got := testutil.ToFloat64(explanationsTotal.WithLabelValues(OutcomeError)); got != beforeErr+1 {
		t.Fatalf("expected unknown explanation outcome to count as error, got %v", got)
	}

	ObserveModelProbability("xgb_model", 0.4)
	if n := testutil.CollectAndCount(modelProbability); n < 1 {
		t.Fatalf("expected model probability series, got %d", n)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest("/api/v1/predictions", "POST", 200, 30*time.Millisecond)
	ObserveHTTPRequest("/api/v1/predictions", "POST", 400, time.Millisecond)
	if n := testutil.CollectAndCount(httpRequestSeconds); n < 2 {
		t.Fatalf("expected one series per status code, got %d", n)
	}
}
