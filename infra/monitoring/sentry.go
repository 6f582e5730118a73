// Package monitoring provides the Sentry backed Monitor.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/forestplan/config"
	coremon "github.com/kilianp07/forestplan/core/monitoring"
)

// panicFlush bounds the wait for a panic report before the panic resumes.
const panicFlush = 2 * time.Second

// NewSentryMonitor returns a Monitor reporting to the DSN in cfg. An empty
// DSN yields a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	hub := sentry.NewHub(client, sentry.NewScope())
	hub.Scope().SetTag("service", "forestplan")
	return &sentryMonitor{hub: hub}, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

func (m *sentryMonitor) CaptureException(err error, tags map[string]string) {
	m.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		m.hub.CaptureException(err)
	})
}

func (m *sentryMonitor) Recover(r any) {
	m.hub.Recover(r)
	m.hub.Flush(panicFlush)
}

func (m *sentryMonitor) Flush(timeout time.Duration) { m.hub.Flush(timeout) }
