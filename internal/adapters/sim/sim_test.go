package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type collector struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *collector) add(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
}

func (c *collector) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

func connect(t *testing.T, cfg Config) *Connection {
	t.Helper()
	conn, err := NewTransport(cfg, mockLogger{}).Connect(context.Background(), "sim")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return conn.(*Connection)
}

func TestSimulatedCube_StreamsQuaternions(t *testing.T) {
	c := connect(t, Config{MotionEvery: 3})
	ctx := context.Background()

	r := ports.DefaultPostureReporting()
	r.Interval = 1
	if err := c.ConfigurePostureReporting(ctx, r); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	var sensor collector
	if _, err := c.Register(ctx, ports.ChannelSensor, sensor.add); err != nil {
		t.Fatalf("Register: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	var quats, motions int
	for _, p := range sensor.snapshot() {
		switch toio.DecodeSensor(p).Kind {
		case toio.SensorPostureQuaternion:
			quats++
		case toio.SensorMotion:
			motions++
		default:
			t.Errorf("unexpected payload %x", p)
		}
	}
	if quats == 0 || motions == 0 {
		t.Errorf("quaternions=%d motions=%d, want both", quats, motions)
	}

	n := len(sensor.snapshot())
	time.Sleep(30 * time.Millisecond)
	if len(sensor.snapshot()) != n {
		t.Error("payloads delivered after Disconnect")
	}
}

func TestSimulatedCube_EulerWithoutConfiguration(t *testing.T) {
	c := connect(t, Config{})
	var sensor collector
	if _, err := c.Register(context.Background(), ports.ChannelSensor, sensor.add); err != nil {
		t.Fatalf("Register: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	_ = c.Disconnect(context.Background())

	got := sensor.snapshot()
	if len(got) == 0 {
		t.Fatal("no payloads")
	}
	if _, ok := toio.DecodeQuaternion(got[0]); ok {
		t.Error("quaternion reported before posture reporting was configured")
	}
}

func TestSimulatedCube_PressesButton(t *testing.T) {
	c := connect(t, Config{PressAfter: 20 * time.Millisecond})
	var button collector
	if _, err := c.Register(context.Background(), ports.ChannelButton, button.add); err != nil {
		t.Fatalf("Register: %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	_ = c.Disconnect(context.Background())

	got := button.snapshot()
	if len(got) != 2 {
		t.Fatalf("button payloads = %d, want 2", len(got))
	}
	if ev, _ := toio.DecodeButton(got[0]); ev != domain.ButtonPressed {
		t.Errorf("first event = %v, want PRESSED", ev)
	}
	if ev, _ := toio.DecodeButton(got[1]); ev != domain.ButtonReleased {
		t.Errorf("second event = %v, want RELEASED", ev)
	}
}

func TestSimulatedCube_Drop(t *testing.T) {
	c := connect(t, Config{DropAfter: 10 * time.Millisecond})
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("link never dropped")
	}
	if c.Err() == nil {
		t.Error("Err is nil after drop")
	}
	if err := c.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect after drop: %v", err)
	}
	if err := c.Disconnect(context.Background()); err == nil {
		t.Error("second Disconnect accepted")
	}
}

func TestSimulatedCube_Handles(t *testing.T) {
	c := connect(t, Config{})
	ctx := context.Background()
	defer c.Disconnect(ctx)

	h, err := c.Register(ctx, ports.ChannelButton, func([]byte) {})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := c.Register(ctx, ports.ChannelButton, func([]byte) {}); err == nil {
		t.Error("duplicate registration accepted")
	}
	if err := c.Unregister(ctx, ports.Handle{Channel: ports.ChannelButton, ID: 99}); err == nil {
		t.Error("unknown handle accepted")
	}
	if err := c.Unregister(ctx, h); err != nil {
		t.Errorf("Unregister: %v", err)
	}
}

func TestConnect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTransport(Config{}, mockLogger{}).Connect(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestQuaternionFromEuler(t *testing.T) {
	tests := []struct {
		name             string
		roll, pitch, yaw float64
		want             domain.PostureQuaternionSample
	}{
		{"identity", 0, 0, 0, domain.PostureQuaternionSample{W: 1}},
		{"yaw 90", 0, 0, 90, domain.PostureQuaternionSample{W: math.Sqrt2 / 2, Z: math.Sqrt2 / 2}},
		{"roll 180", 180, 0, 0, domain.PostureQuaternionSample{X: 1}},
	}

	const eps = 1e-9
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuaternionFromEuler(tt.roll, tt.pitch, tt.yaw)
			if math.Abs(got.W-tt.want.W) > eps || math.Abs(got.X-tt.want.X) > eps ||
				math.Abs(got.Y-tt.want.Y) > eps || math.Abs(got.Z-tt.want.Z) > eps {
				t.Errorf("QuaternionFromEuler(%v, %v, %v) = %+v, want %+v", tt.roll, tt.pitch, tt.yaw, got, tt.want)
			}
		})
	}

	q := QuaternionFromEuler(Attitude(1234 * time.Millisecond))
	if norm := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z; math.Abs(norm-1) > eps {
		t.Errorf("norm = %v, want 1", norm)
	}
}
