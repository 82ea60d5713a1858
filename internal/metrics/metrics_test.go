package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
)

func TestRecordImport(t *testing.T) {
	before := testutil.ToFloat64(ImportPicks.WithLabelValues("inserted"))
	runs := testutil.ToFloat64(ImportRuns.WithLabelValues("ok"))

	RecordImport(ImportResult{Inserted: 3, Updated: 1, Duration: time.Second})

	if got := testutil.ToFloat64(ImportPicks.WithLabelValues("inserted")) - before; got != 3 {
		t.Errorf("inserted delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(ImportRuns.WithLabelValues("ok")) - runs; got != 1 {
		t.Errorf("runs delta = %v, want 1", got)
	}
}

func TestBreakerStateValue(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}
	for _, tt := range tests {
		if got := BreakerStateValue(tt.state); got != tt.want {
			t.Errorf("BreakerStateValue(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
