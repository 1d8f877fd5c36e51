package analytics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	collectors := m.Collectors()
	if len(collectors) != 4 {
		t.Errorf("expected 4 collectors, got %d", len(collectors))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Errorf("Register() returned error: %v", err)
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := m.Register(reg); err == nil {
			t.Error("expected error on duplicate registration")
		}
	})
}

func TestMetrics_IncEventsRecorded(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	m.IncEventsRecorded("track_play")
	m.IncEventsRecorded("track_play")
	m.IncEventsRecorded("like")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == MetricEventsRecorded {
			family = f
		}
	}
	if family == nil {
		t.Fatalf("metric %s not found", MetricEventsRecorded)
	}

	counts := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "name" {
				counts[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}

	if counts["track_play"] != 2 {
		t.Errorf("track_play count = %v, want 2", counts["track_play"])
	}
	if counts["like"] != 1 {
		t.Errorf("like count = %v, want 1", counts["like"])
	}
}

func TestMetrics_QueryInstrumentation(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	m.IncQueries("7d")
	m.AddEventsAggregated(42)
	m.ObserveQueryDuration(0.012)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}

	found := make(map[string]bool)
	for _, f := range families {
		found[f.GetName()] = true
		switch f.GetName() {
		case MetricEventsAggregated:
			if v := f.GetMetric()[0].GetCounter().GetValue(); v != 42 {
				t.Errorf("%s = %v, want 42", MetricEventsAggregated, v)
			}
		case MetricQueryDuration:
			if c := f.GetMetric()[0].GetHistogram().GetSampleCount(); c != 1 {
				t.Errorf("%s sample count = %d, want 1", MetricQueryDuration, c)
			}
		}
	}

	for _, name := range []string{MetricQueries, MetricQueryDuration, MetricEventsAggregated} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}
