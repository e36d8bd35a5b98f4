package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f fakeCounter) CountAnalysesByOrganization(context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

// value returns the summed counter or gauge value of a family whose labels
// include every pair in want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func TestRecorder_Observers(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg, nil)

	r.ObserveOracleCall("analyze", "ok", time.Second)
	r.ObserveOracleCall("analyze", errs.OracleTimeout, 2*time.Minute)
	r.ObserveOracleCall("risk_register", "ok", time.Second)
	r.ObserveAnalysis("ok", 3*time.Second)
	r.ObserveDeliverable(models.DeliverableSpecGaps, errs.OracleParseFailure, time.Second)

	tests := []struct {
		name   string
		metric string
		labels map[string]string
		want   float64
	}{
		{"oracle ok", "sowmatch_oracle_calls_total", map[string]string{"operation": "analyze", "outcome": "ok"}, 1},
		{"oracle timeout", "sowmatch_oracle_calls_total", map[string]string{"outcome": "oracle_timeout"}, 1},
		{"oracle all", "sowmatch_oracle_calls_total", nil, 3},
		{"analyses", "sowmatch_analyses_total", map[string]string{"outcome": "ok"}, 1},
		{"deliverables", "sowmatch_deliverables_total", map[string]string{"type": "spec_gaps", "outcome": "oracle_parse_failure"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value(t, reg, tt.metric, tt.labels); got != tt.want {
				t.Errorf("%s%v = %v, want %v", tt.metric, tt.labels, got, tt.want)
			}
		})
	}
}

func TestAnalysisCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg, fakeCounter{counts: map[string]int64{"northline": 3, "dev": 1}})

	if got := value(t, reg, "sowmatch_analyses_stored", map[string]string{"organization": "northline"}); got != 3 {
		t.Errorf("northline = %v, want 3", got)
	}
	if got := value(t, reg, "sowmatch_analyses_stored", nil); got != 4 {
		t.Errorf("total = %v, want 4", got)
	}
}

func TestAnalysisCollector_StoreError(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg, fakeCounter{err: errors.New("connection refused")})

	if got := value(t, reg, "sowmatch_analyses_stored", nil); got != 0 {
		t.Errorf("total = %v, want 0 on store error", got)
	}
}
