package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/infra/logger"
)

// InfluxSink writes run and window summaries to an InfluxDB instance. Single
// iterations are not written; they belong in the telemetry stores.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordIteration is a no-op.
func (s *InfluxSink) RecordIteration(coremetrics.IterationEvent) error { return nil }

// RecordRun writes a solver_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solver_run").
		AddTag("run_id", ev.RunID).
		AddTag("solver", ev.Solver).
		AddTag("status", ev.Status)
	if ev.Window >= 0 {
		p = p.AddTag("window", strconv.Itoa(ev.Window))
	}
	p = p.AddField("objective", round3(ev.Objective)).
		AddField("mobilisation_events", ev.Events).
		AddField("iterations", ev.Iterations).
		AddField("accepted", ev.Accepted).
		AddField("duration_s", round3(ev.Duration.Seconds())).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWindow writes a rolling_window point.
func (s *InfluxSink) RecordWindow(ev coremetrics.WindowEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rolling_window").
		AddTag("run_id", ev.RunID).
		AddTag("solver", ev.Solver).
		AddTag("window", strconv.Itoa(ev.Index)).
		AddTag("status", ev.Status).
		AddField("start_day", ev.Start).
		AddField("end_day", ev.End).
		AddField("lock_end_day", ev.LockEnd).
		AddField("objective", round3(ev.Objective)).
		AddField("locked", ev.Locked).
		AddField("duration_s", round3(ev.Duration.Seconds()))
	if ev.Err != nil {
		p = p.AddField("error", ev.Err.Error())
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
