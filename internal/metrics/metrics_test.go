package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveChat(OutcomeOK, 20*time.Millisecond)
	m.ObserveChat(OutcomeOK, 30*time.Millisecond)
	m.ObserveChat(OutcomeTimeout, time.Minute)
	m.ObserveLoad(time.Second, nil)
	m.ObserveLoad(time.Second, errors.New("x"))
	m.SetBackendState(2)
	m.ObserveAbandon("search", true)

	if got := testutil.ToFloat64(m.ChatRequests.WithLabelValues(OutcomeOK)); got != 2 {
		t.Errorf("ok requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ChatRequests.WithLabelValues(OutcomeTimeout)); got != 1 {
		t.Errorf("timeout requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BackendState); got != 2 {
		t.Errorf("backend state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Abandoned.WithLabelValues("search", "true")); got != 1 {
		t.Errorf("abandoned = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.BackendLoad); got != 2 {
		t.Errorf("backend load series = %d, want 2", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveChat(OutcomeBadRequest, time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `ayuda_chat_requests_total{outcome="bad_request"} 1`) {
		t.Errorf("exposition missing chat counter:\n%s", body)
	}
}

func TestMetrics_TrackPool(t *testing.T) {
	m := New()
	busy := 1
	m.TrackPool("search", func() int { return busy }, func() int { return 4 })
	m.TrackPool("search", func() int { return 99 }, func() int { return 99 })
	busy = 3

	want := `
# HELP ayuda_harness_workers_busy Workers currently running a task
# TYPE ayuda_harness_workers_busy gauge
ayuda_harness_workers_busy{pool="search"} 3
# HELP ayuda_harness_workers Worker pool capacity
# TYPE ayuda_harness_workers gauge
ayuda_harness_workers{pool="search"} 4
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want),
		"ayuda_harness_workers_busy", "ayuda_harness_workers"); err != nil {
		t.Error(err)
	}
}
