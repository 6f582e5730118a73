package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/forestplan/core/metrics"
)

func captureServer(t *testing.T, body *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var body string
	srv := captureServer(t, &body)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:      "r1",
		Solver:     "sa",
		Status:     "BUDGET_EXHAUSTED",
		Window:     -1,
		Objective:  123.4567,
		Events:     3,
		Iterations: 50,
		Accepted:   20,
		Duration:   1500 * time.Millisecond,
		Time:       now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("solver_run").
		AddTag("run_id", "r1").
		AddTag("solver", "sa").
		AddTag("status", "BUDGET_EXHAUSTED").
		AddField("objective", 123.457).
		AddField("mobilisation_events", 3).
		AddField("iterations", 50).
		AddField("accepted", 20).
		AddField("duration_s", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordWindow(t *testing.T) {
	var body string
	srv := captureServer(t, &body)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	err := sink.RecordWindow(coremetrics.WindowEvent{
		RunID: "r1", Index: 1, Start: 8, End: 14, LockEnd: 14,
		Solver: "tabu", Status: "FAILED", Err: errors.New("landing_capacity"), Time: now,
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.HasPrefix(body, "rolling_window,") {
		t.Fatalf("unexpected measurement: %s", body)
	}
	for _, want := range []string{"window=1", "start_day=8i", "lock_end_day=14i", `error="landing_capacity"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not queried")
	}
}
