// Package mqtt publishes scene records to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Config contains MQTT sink settings.
type Config struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker string

	// ClientID identifies this publisher to the broker.
	ClientID string

	// TopicPrefix is prepended to every entity path.
	TopicPrefix string

	// Timeout bounds connect and retained publishes.
	Timeout time.Duration
}

// DefaultConfig returns settings for a broker on localhost.
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		ClientID:    "toiopose",
		TopicPrefix: "toio",
		Timeout:     5 * time.Second,
	}
}

// Client is the subset of paho.Client the renderer uses.
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Renderer implements ports.Renderer by publishing domain.Envelope JSON.
// Static records are retained so late subscribers see the scene setup;
// poses are fire-and-forget at QoS 0.
type Renderer struct {
	cfg    Config
	client Client
	logger ports.Logger

	mu        sync.Mutex
	scene     string
	connected bool
}

// NewRenderer creates a renderer with a paho client built from cfg.
func NewRenderer(cfg Config, logger ports.Logger) *Renderer {
	def := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = def.TopicPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)
	return NewRendererWithClient(cfg, paho.NewClient(opts), logger)
}

// NewRendererWithClient creates a renderer around an existing client.
func NewRendererWithClient(cfg Config, client Client, logger ports.Logger) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Renderer{cfg: cfg, client: client, logger: logger}
}

// Topic returns the topic records for path are published on.
func (r *Renderer) Topic(path string) string {
	prefix := strings.TrimSuffix(r.cfg.TopicPrefix, "/")
	path = strings.TrimPrefix(path, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

// Init connects to the broker.
func (r *Renderer) Init(ctx context.Context, scene string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = scene
	if r.connected {
		return nil
	}
	if err := wait(ctx, r.client.Connect(), r.cfg.Timeout); err != nil {
		return fmt.Errorf("connect to %s: %w", r.cfg.Broker, err)
	}
	r.connected = true
	r.logger.Info("connected to MQTT broker", ports.String("broker", r.cfg.Broker))
	return nil
}

// Log publishes rec at QoS 0 without waiting for delivery.
func (r *Renderer) Log(path string, rec domain.Record) error {
	data, err := r.encode(path, rec, false)
	if err != nil {
		return err
	}
	r.client.Publish(r.Topic(path), 0, false, data)
	return nil
}

// LogStatic publishes rec retained at QoS 1 and waits for the broker.
func (r *Renderer) LogStatic(path string, rec domain.Record) error {
	data, err := r.encode(path, rec, true)
	if err != nil {
		return err
	}
	if err := wait(context.Background(), r.client.Publish(r.Topic(path), 1, true, data), r.cfg.Timeout); err != nil {
		return fmt.Errorf("publish %s: %w", r.Topic(path), err)
	}
	return nil
}

// Close disconnects, allowing 250ms for in-flight messages.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		r.client.Disconnect(250)
		r.connected = false
	}
	return nil
}

func (r *Renderer) encode(path string, rec domain.Record, static bool) ([]byte, error) {
	r.mu.Lock()
	scene := r.scene
	r.mu.Unlock()

	data, err := json.Marshal(domain.NewEnvelope(scene, path, rec, static))
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", rec.Kind(), err)
	}
	return data, nil
}

// wait blocks until tok completes, ctx ends, or timeout elapses.
func wait(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out")
	}
}
