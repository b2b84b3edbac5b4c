package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun(RunCompleted, 1.5)
	m.ObserveRun(RunCompleted, 0.5)
	m.ObserveRun(RunFailed, 0.1)

	if got := testutil.ToFloat64(m.PipelineRuns.WithLabelValues(RunCompleted)); got != 2 {
		t.Errorf("completed runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PipelineRuns.WithLabelValues(RunFailed)); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
}

func TestSetSeriesCounts(t *testing.T) {
	m := New()

	m.SetSeriesCounts(map[string]int64{"unresolved": 3, "search_matched": 7})
	// A refresh overwrites, it does not accumulate
	m.SetSeriesCounts(map[string]int64{"unresolved": 1})

	if got := testutil.ToFloat64(m.SeriesByStatus.WithLabelValues("unresolved")); got != 1 {
		t.Errorf("unresolved gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SeriesByStatus.WithLabelValues("search_matched")); got != 7 {
		t.Errorf("search_matched gauge = %v, want 7", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.NamesParsed.Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "showsift_release_names_parsed_total 5") {
		t.Errorf("exposition missing parser counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("exposition missing Go collector output")
	}
}

func TestIndependentInstances(t *testing.T) {
	first := New()
	second := New()

	first.TorrentsSelected.Inc()
	if got := testutil.ToFloat64(second.TorrentsSelected); got != 0 {
		t.Errorf("second instance counter = %v, want 0", got)
	}
}
