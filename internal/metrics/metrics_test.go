package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	WorkerJobs.WithLabelValues("completed").Inc()
	GenerationRequests.WithLabelValues("code_generation", "ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	want := map[string]bool{
		"vibeyard_worker_jobs_total":         false,
		"vibeyard_generation_requests_total": false,
		"vibeyard_worker_queue_depth":        false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestWorkerJobs_Labels(t *testing.T) {
	before := testutil.ToFloat64(WorkerJobs.WithLabelValues("exhausted"))
	WorkerJobs.WithLabelValues("exhausted").Inc()
	if got := testutil.ToFloat64(WorkerJobs.WithLabelValues("exhausted")); got != before+1 {
		t.Errorf("exhausted = %v, want %v", got, before+1)
	}
}
