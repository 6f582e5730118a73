// Package app wires the configured runtime around the solvers: logging,
// telemetry stores, metrics sinks, the event bus, remote cancellation and
// error reporting.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/forestplan/config"
	coremetrics "github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/monitoring"
	"github.com/kilianp07/forestplan/core/rolling"
	"github.com/kilianp07/forestplan/core/search"
	"github.com/kilianp07/forestplan/core/telemetry"
	"github.com/kilianp07/forestplan/infra/logger"
	"github.com/kilianp07/forestplan/infra/metrics"
	infmon "github.com/kilianp07/forestplan/infra/monitoring"
	"github.com/kilianp07/forestplan/infra/mqtt"
	"github.com/kilianp07/forestplan/internal/eventbus"
	"github.com/kilianp07/forestplan/pkg/export"
)

// monitoringFlush bounds how long Close waits for pending error reports.
const monitoringFlush = 2 * time.Second

// Service holds the runtime shared by every command.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	logOpts logger.Options
	store   telemetry.Store
	sink    coremetrics.MetricsSink
	bus     *eventbus.Bus

	publishers []*mqtt.Publisher
	done       []<-chan struct{}
	closeOnce  sync.Once
}

// New builds the stores and sinks named by cfg.
func New(cfg *config.Config) (*Service, error) {
	opts := logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console}
	logg := logger.NewWithOptions("service", opts)

	mon, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	s := &Service{cfg: cfg, log: logg, logOpts: opts, bus: eventbus.New()}
	var stores []telemetry.Store
	for _, sc := range cfg.Telemetry.Stores {
		st, err := telemetry.NewStore(sc)
		if err != nil {
			_ = telemetry.NewMultiStore(stores...).Close()
			return nil, fmt.Errorf("telemetry store %s: %w", sc.Type, err)
		}
		if p, ok := st.(*mqtt.Publisher); ok {
			s.publishers = append(s.publishers, p)
		}
		stores = append(stores, st)
	}
	switch len(stores) {
	case 0:
		s.store = telemetry.NopStore{}
	case 1:
		s.store = stores[0]
	default:
		s.store = telemetry.NewMultiStore(stores...)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = s.store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	s.sink = sink
	return s, nil
}

// Start launches the background parts: the Prometheus server when a listen
// address is set, the window event collector and remote cancellation. The
// returned context is canceled by a cancel request or by stop.
func (s *Service) Start(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if addr := s.cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.done = append(s.done, metrics.StartEventCollector(ctx, s.bus, s.sink))
	for _, p := range s.publishers {
		p.OnCancel(func(runID string) {
			s.log.Warnf("remote cancel received (run %q)", runID)
			cancel()
		})
	}
	return ctx, cancel
}

// Logger returns the service logger.
func (s *Service) Logger() logger.Logger { return s.log }

// Solve runs one engine over the whole problem.
func (s *Service) Solve(ctx context.Context, p *model.Problem) (*search.Result, error) {
	res, err := search.Solve(ctx, p, s.cfg.Solver.Name, s.cfg.Solver.Options,
		search.WithLogger(logger.NewWithOptions("solver", s.logOpts)),
		search.WithTelemetry(s.store),
		search.WithMetrics(s.sink),
	)
	if err != nil {
		s.report(err, map[string]string{"command": "solve", "solver": s.cfg.Solver.Name})
		return nil, err
	}
	return res, nil
}

// SolveRolling runs the rolling orchestrator. A master_days of 0 covers the
// whole problem.
func (s *Service) SolveRolling(ctx context.Context, p *model.Problem) (*rolling.Result, error) {
	rc := s.cfg.Rolling
	master := rc.MasterDays
	if master == 0 {
		master = p.Days()
	}
	commitments, err := s.commitments()
	if err != nil {
		return nil, err
	}
	res, err := rolling.SolveRolling(ctx, p, master, rc.SubproblemDays, rc.LockDays, s.cfg.Solver.Name, s.cfg.Solver.Options,
		rolling.WithLogger(logger.NewWithOptions("rolling", s.logOpts)),
		rolling.WithEventBus(s.bus),
		rolling.WithTelemetry(s.store),
		rolling.WithMetrics(s.sink),
		rolling.WithCommitments(commitments),
	)
	if err != nil {
		tags := map[string]string{"command": "rolling", "solver": s.cfg.Solver.Name}
		var iw *rolling.InfeasibleWindowError
		if errors.As(err, &iw) {
			tags["window"] = strconv.Itoa(iw.Window)
			tags["constraint"] = iw.Constraint
		}
		s.report(err, tags)
		return nil, err
	}
	return res, nil
}

func (s *Service) commitments() ([]model.Assignment, error) {
	path := s.cfg.Rolling.Commitments
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("commitments: %w", err)
	}
	defer func() { _ = f.Close() }()
	as, err := export.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("commitments %s: %w", path, err)
	}
	return as, nil
}

// report sends failures to the error tracker. Configuration mistakes are
// the caller's and are only logged.
func (s *Service) report(err error, tags map[string]string) {
	s.log.Errorf("%s failed: %v", tags["command"], err)
	var ce *search.ConfigurationError
	if errors.As(err, &ce) {
		return
	}
	monitoring.CaptureException(err, tags)
}

// Close stops the collector and releases stores and sinks.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.bus.Close()
		for _, d := range s.done {
			<-d
		}
		closeSink(s.sink)
		err = s.store.Close()
		monitoring.Flush(monitoringFlush)
	})
	return err
}

func closeSink(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, c := range v.Sinks {
			closeSink(c)
		}
	case interface{ Close() }:
		v.Close()
	}
}
