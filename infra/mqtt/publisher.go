package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/forestplan/core/factory"
	"github.com/kilianp07/forestplan/core/telemetry"
	"github.com/kilianp07/forestplan/infra/logger"
)

// Publisher is a write-only telemetry.Store that publishes each record as a
// JSON message on <topic>/<solver>/<kind>.
type Publisher struct {
	cli     pahoClient
	cfg     Config
	backoff time.Duration
	logger  logger.Logger

	mu       sync.Mutex
	onCancel []func(runID string)
}

func init() {
	_ = telemetry.RegisterStore("mqtt", func(conf map[string]any) (telemetry.Store, error) {
		var c Config
		if err := factory.DecodeStrict(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}

// NewPublisher connects to the broker. When ControlTopic is set it also
// subscribes to cancel requests.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &Publisher{
		cfg:     cfg,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:  log,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if cfg.ControlTopic == "" {
			return
		}
		if token := c.Subscribe(cfg.ControlTopic, cfg.QoS, p.onControl); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// OnCancel registers fn to be called when a cancel request arrives. An empty
// run ID in the request means every run.
func (p *Publisher) OnCancel(fn func(runID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCancel = append(p.onCancel, fn)
}

func (p *Publisher) onControl(_ paho.Client, msg paho.Message) {
	var m struct {
		Command string `json:"command"`
		RunID   string `json:"run_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode control message: %v", err)
		return
	}
	if m.Command != "cancel" {
		p.logger.Warnf("ignoring control command %q", m.Command)
		return
	}
	p.mu.Lock()
	handlers := append([]func(string){}, p.onCancel...)
	p.mu.Unlock()
	p.logger.Infof("cancel requested for run %q", m.RunID)
	for _, fn := range handlers {
		fn(m.RunID)
	}
}

// Topic returns the topic a record is published on.
func (p *Publisher) Topic(rec telemetry.Record) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.Topic, rec.Solver, rec.Kind)
}

// Append publishes rec, retrying with exponential backoff.
func (p *Publisher) Append(ctx context.Context, rec telemetry.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	topic := p.Topic(rec)
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Query is not supported; records live on the broker.
func (p *Publisher) Query(context.Context, telemetry.Query) ([]telemetry.Record, error) {
	return nil, telemetry.ErrQueryUnsupported
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
