package telemetry

import (
	"testing"
	"time"

	"github.com/nm-morais/go-accrual/pkg/detector"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamilies(t *testing.T, c *DetectorCollector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func gaugeValue(t *testing.T, byName map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf, ok := byName[name]
	if !ok {
		t.Fatalf("metric family %s not exported", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func TestDetectorCollector(t *testing.T) {
	d := detector.NewDefault()
	c := NewDetectorCollector("peer-0", d)

	byName := gatherFamilies(t, c)
	for _, name := range []string{
		"accrual_phi",
		"accrual_available",
		"accrual_monitoring",
		"accrual_sample_window_size",
		"accrual_accepted_intervals_total",
		"accrual_discarded_intervals_total",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("metric family %s not exported", name)
		}
	}

	if v := gaugeValue(t, byName, "accrual_phi"); v != 0 {
		t.Errorf("accrual_phi => %f before any heartbeat, want 0", v)
	}
	if v := gaugeValue(t, byName, "accrual_monitoring"); v != 0 {
		t.Errorf("accrual_monitoring => %f before any heartbeat, want 0", v)
	}
	if v := gaugeValue(t, byName, "accrual_available"); v != 1 {
		t.Errorf("accrual_available => %f before any heartbeat, want 1", v)
	}

	d.Heartbeat(time.Now())
	byName = gatherFamilies(t, c)
	if v := gaugeValue(t, byName, "accrual_monitoring"); v != 1 {
		t.Errorf("accrual_monitoring => %f after a heartbeat, want 1", v)
	}
	if v := gaugeValue(t, byName, "accrual_sample_window_size"); v != 2 {
		t.Errorf("accrual_sample_window_size => %f, want the 2 bootstrap samples", v)
	}

	peer := byName["accrual_phi"].GetMetric()[0].GetLabel()
	if len(peer) != 1 || peer[0].GetName() != "peer" || peer[0].GetValue() != "peer-0" {
		t.Errorf("peer label => %v, want peer=peer-0", peer)
	}
}
